// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notion

import (
	"encoding/json"
	"time"

	"emperror.dev/errors"
)

const errUnexpectedObject = errors.Sentinel("unexpected object in page results")

// Page is a single entry returned by a database query. The API hands out
// either a full page, carrying its properties, or a partial page holding
// nothing more than an identifier. Callers are expected to type switch on
// *FullPage and *PartialPage.
type Page interface {
	PageID() string
	isPage()
}

// FullPage is a page with its properties.
type FullPage struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	Properties     map[string]Property `json:"properties"`
}

// PartialPage is the stub returned when the integration may only see the
// page identifier.
type PartialPage struct {
	ID string `json:"id"`
}

func (p *FullPage) PageID() string    { return p.ID }
func (p *PartialPage) PageID() string { return p.ID }

func (*FullPage) isPage()    {}
func (*PartialPage) isPage() {}

// pageEnvelope carries just enough to tell the two page shapes apart.
type pageEnvelope struct {
	Object string          `json:"object"`
	ID     string          `json:"id"`
	URL    json.RawMessage `json:"url"`
}

// decodePage picks the concrete page type. A page is full exactly when the
// payload has a url member.
func decodePage(data []byte) (Page, error) {
	var env pageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Object != "page" {
		return nil, errors.WithDetails(errUnexpectedObject, "object", env.Object, "id", env.ID)
	}
	if len(env.URL) == 0 {
		return &PartialPage{ID: env.ID}, nil
	}

	var full FullPage
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, err
	}
	return &full, nil
}
