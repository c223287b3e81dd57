// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"net/url"
	"strings"

	"github.com/spf13/cast"
	"github.com/xmidt-org/streamdex/model"
)

// Record keys with a meaning beyond plain republishing.
const (
	NameKey    = "name"
	PublishKey = "publish"
	SlugKey    = "slug"
	PhotoKey   = "photo"
)

// PhotoPath is the route prefix photos are served under.
const PhotoPath = "/streamers"

// Publish decides whether a record is part of the public index and, when it
// is, returns a copy carrying its slug and its same-origin photo URL. The
// photo key is always present; it is nil when the record has no photo.
func Publish(record model.Record, id, origin string) (model.Record, bool) {
	name, _ := record[NameKey].(string)
	if name == "" || !truthy(record[PublishKey]) {
		return nil, false
	}

	published := make(model.Record, len(record)+2)
	for k, v := range record {
		published[k] = v
	}

	slug := cast.ToString(record[SlugKey])
	if slug == "" {
		slug = name
	}
	published[SlugKey] = Slug(slug)

	if asset, ok := PhotoName(record); ok {
		published[PhotoKey] = origin + PhotoPath + "/" + id + "/" + url.PathEscape(asset)
	} else {
		published[PhotoKey] = nil
	}
	return published, true
}

// Slug is the URL-safe identifier derived from s. It is deterministic and
// Slug(Slug(s)) == Slug(s).
func Slug(s string) string {
	return KebabCase(strings.ToLower(s))
}

// PhotoName returns the name of the first attachment in the photo list.
func PhotoName(record model.Record) (string, bool) {
	files, ok := record[PhotoKey].([]interface{})
	if !ok || len(files) == 0 {
		return "", false
	}
	first, ok := files[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	name, _ := first["name"].(string)
	return name, name != ""
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return true
	}
	return f != 0
}
