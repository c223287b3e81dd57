// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notion

import "encoding/json"

// Property types understood by this package.
const (
	TitleType          = "title"
	RichTextType       = "rich_text"
	NumberType         = "number"
	SelectType         = "select"
	StatusType         = "status"
	MultiSelectType    = "multi_select"
	CheckboxType       = "checkbox"
	URLType            = "url"
	EmailType          = "email"
	PhoneNumberType    = "phone_number"
	DateType           = "date"
	FilesType          = "files"
	PeopleType         = "people"
	CreatedByType      = "created_by"
	LastEditedByType   = "last_edited_by"
	RelationType       = "relation"
	FormulaType        = "formula"
	RollupType         = "rollup"
	CreatedTimeType    = "created_time"
	LastEditedTimeType = "last_edited_time"
	UniqueIDType       = "unique_id"
)

// File types.
const (
	FileHosted   = "file"
	FileExternal = "external"
)

// Property is a typed page property value. Type names the populated payload
// field; every other payload field is left at its zero value.
type Property struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Title          []RichText `json:"title"`
	RichText       []RichText `json:"rich_text"`
	Number         *float64   `json:"number"`
	Select         *Option    `json:"select"`
	Status         *Option    `json:"status"`
	MultiSelect    []Option   `json:"multi_select"`
	Checkbox       *bool      `json:"checkbox"`
	URL            *string    `json:"url"`
	Email          *string    `json:"email"`
	PhoneNumber    *string    `json:"phone_number"`
	Date           *Date      `json:"date"`
	Files          []File     `json:"files"`
	People         []User     `json:"people"`
	CreatedBy      *User      `json:"created_by"`
	LastEditedBy   *User      `json:"last_edited_by"`
	Relation       []Relation `json:"relation"`
	Formula        *Formula   `json:"formula"`
	Rollup         *Rollup    `json:"rollup"`
	CreatedTime    *string    `json:"created_time"`
	LastEditedTime *string    `json:"last_edited_time"`
	UniqueID       *UniqueID  `json:"unique_id"`
}

type RichText struct {
	PlainText string `json:"plain_text"`
}

type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Date struct {
	Start string  `json:"start"`
	End   *string `json:"end"`
}

// File is an attachment, either hosted by Notion or linked externally.
type File struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	File     *FileRef `json:"file"`
	External *FileRef `json:"external"`
}

type FileRef struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// Location returns the URL of the attachment for its declared type.
func (f File) Location() (string, bool) {
	switch {
	case f.Type == FileHosted && f.File != nil:
		return f.File.URL, true
	case f.Type == FileExternal && f.External != nil:
		return f.External.URL, true
	}
	return "", false
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Relation struct {
	ID string `json:"id"`
}

type Formula struct {
	Type    string   `json:"type"`
	String  *string  `json:"string"`
	Number  *float64 `json:"number"`
	Boolean *bool    `json:"boolean"`
	Date    *Date    `json:"date"`
}

type Rollup struct {
	Type   string     `json:"type"`
	Number *float64   `json:"number"`
	Date   *Date      `json:"date"`
	Array  []Property `json:"array"`
}

type UniqueID struct {
	Prefix *string `json:"prefix"`
	Number *int64  `json:"number"`
}

// propertyItem is the response body of the page property endpoint. Simple
// properties come back as a single item; paginated ones come back as a list
// whose property_item member names the type.
type propertyItem struct {
	Object       string `json:"object"`
	PropertyItem *struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"property_item"`
	Results []json.RawMessage `json:"results"`
	Property
}

func (p propertyItem) property() Property {
	if p.Object == "list" && p.PropertyItem != nil {
		return Property{ID: p.PropertyItem.ID, Type: p.PropertyItem.Type}
	}
	return p.Property
}
