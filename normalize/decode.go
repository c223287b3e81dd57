// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"fmt"
	"strings"

	"emperror.dev/errors"
	"github.com/xmidt-org/streamdex/notion"
)

const (
	ErrUnsupportedProperty = errors.Sentinel("unsupported property type")
	ErrMalformedProperty   = errors.Sentinel("property payload does not match its type")
)

// Decode turns a typed property into a plain JSON value. Lists are always
// returned as []interface{} so callers can treat every list the same way.
func Decode(p notion.Property) (interface{}, error) {
	switch p.Type {
	case notion.TitleType:
		return plainText(p, p.Title)
	case notion.RichTextType:
		return plainText(p, p.RichText)
	case notion.NumberType:
		if p.Number == nil {
			return nil, nil
		}
		return *p.Number, nil
	case notion.SelectType:
		return optionName(p.Select), nil
	case notion.StatusType:
		return optionName(p.Status), nil
	case notion.MultiSelectType:
		if p.MultiSelect == nil {
			return nil, malformed(p)
		}
		names := make([]interface{}, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			names = append(names, o.Name)
		}
		return names, nil
	case notion.CheckboxType:
		if p.Checkbox == nil {
			return nil, malformed(p)
		}
		return *p.Checkbox, nil
	case notion.URLType:
		return optionalString(p.URL), nil
	case notion.EmailType:
		return optionalString(p.Email), nil
	case notion.PhoneNumberType:
		return optionalString(p.PhoneNumber), nil
	case notion.DateType:
		return date(p.Date), nil
	case notion.FilesType:
		if p.Files == nil {
			return nil, malformed(p)
		}
		files := make([]interface{}, 0, len(p.Files))
		for _, f := range p.Files {
			u, _ := f.Location()
			files = append(files, map[string]interface{}{
				"name": f.Name,
				"type": f.Type,
				"url":  u,
			})
		}
		return files, nil
	case notion.PeopleType:
		if p.People == nil {
			return nil, malformed(p)
		}
		people := make([]interface{}, 0, len(p.People))
		for _, u := range p.People {
			people = append(people, userName(u))
		}
		return people, nil
	case notion.CreatedByType:
		if p.CreatedBy == nil {
			return nil, malformed(p)
		}
		return userName(*p.CreatedBy), nil
	case notion.LastEditedByType:
		if p.LastEditedBy == nil {
			return nil, malformed(p)
		}
		return userName(*p.LastEditedBy), nil
	case notion.RelationType:
		if p.Relation == nil {
			return nil, malformed(p)
		}
		ids := make([]interface{}, 0, len(p.Relation))
		for _, r := range p.Relation {
			ids = append(ids, r.ID)
		}
		return ids, nil
	case notion.FormulaType:
		return formula(p)
	case notion.RollupType:
		return rollup(p)
	case notion.CreatedTimeType:
		return optionalString(p.CreatedTime), nil
	case notion.LastEditedTimeType:
		return optionalString(p.LastEditedTime), nil
	case notion.UniqueIDType:
		if p.UniqueID == nil {
			return nil, malformed(p)
		}
		if p.UniqueID.Number == nil {
			return nil, nil
		}
		if p.UniqueID.Prefix != nil && *p.UniqueID.Prefix != "" {
			return fmt.Sprintf("%s-%d", *p.UniqueID.Prefix, *p.UniqueID.Number), nil
		}
		return float64(*p.UniqueID.Number), nil
	}
	return nil, errors.WithDetails(ErrUnsupportedProperty, "type", p.Type, "id", p.ID)
}

func malformed(p notion.Property) error {
	return errors.WithDetails(ErrMalformedProperty, "type", p.Type, "id", p.ID)
}

func plainText(p notion.Property, text []notion.RichText) (interface{}, error) {
	if text == nil {
		return nil, malformed(p)
	}
	var b strings.Builder
	for _, t := range text {
		b.WriteString(t.PlainText)
	}
	return b.String(), nil
}

func optionName(o *notion.Option) interface{} {
	if o == nil {
		return nil
	}
	return o.Name
}

func optionalString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func date(d *notion.Date) interface{} {
	if d == nil {
		return nil
	}
	if d.End == nil {
		return d.Start
	}
	return []interface{}{d.Start, *d.End}
}

func userName(u notion.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

func formula(p notion.Property) (interface{}, error) {
	f := p.Formula
	if f == nil {
		return nil, malformed(p)
	}
	switch f.Type {
	case "string":
		return optionalString(f.String), nil
	case "number":
		if f.Number == nil {
			return nil, nil
		}
		return *f.Number, nil
	case "boolean":
		if f.Boolean == nil {
			return nil, nil
		}
		return *f.Boolean, nil
	case "date":
		return date(f.Date), nil
	}
	return nil, errors.WithDetails(ErrUnsupportedProperty, "type", "formula."+f.Type, "id", p.ID)
}

func rollup(p notion.Property) (interface{}, error) {
	r := p.Rollup
	if r == nil {
		return nil, malformed(p)
	}
	switch r.Type {
	case "number":
		if r.Number == nil {
			return nil, nil
		}
		return *r.Number, nil
	case "date":
		return date(r.Date), nil
	case "array":
		values := make([]interface{}, 0, len(r.Array))
		for _, element := range r.Array {
			v, err := Decode(element)
			if err != nil {
				return nil, err
			}
			if !isEmpty(v) {
				values = append(values, v)
			}
		}
		return values, nil
	case "incomplete", "unsupported":
		return nil, nil
	}
	return nil, errors.WithDetails(ErrUnsupportedProperty, "type", "rollup."+r.Type, "id", p.ID)
}
