// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"sort"
	"strings"

	"emperror.dev/errors"
	"github.com/xmidt-org/streamdex/model"
	"github.com/xmidt-org/streamdex/notion"
	"go.uber.org/zap"
)

// names kept as literal lower case keys instead of being camel cased.
var literalKeys = map[string]string{
	"cashapp": "cashapp",
	"paypal":  "paypal",
}

// Key returns the record key for a property name.
func Key(name string) string {
	if k, ok := literalKeys[strings.ToLower(name)]; ok {
		return k
	}
	return CamelCase(name)
}

// Normalize flattens the properties of a page into a record. Properties are
// visited in name order, so when two names share a key the later one wins.
// Values that decode to nothing (null, the empty string or an empty list)
// are left out, as are property types this package cannot decode. Only a
// payload that contradicts its declared type is an error.
func Normalize(properties map[string]notion.Property, logger *zap.Logger) (model.Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	record := make(model.Record, len(properties))
	owners := make(map[string]string, len(properties))
	for _, name := range names {
		p := properties[name]
		v, err := Decode(p)
		switch {
		case errors.Is(err, ErrUnsupportedProperty):
			logger.Debug("skipping property of unsupported type",
				zap.String("property", name), zap.String("type", p.Type))
			continue
		case err != nil:
			return nil, errors.WithDetails(err, "property", name)
		}
		if isEmpty(v) {
			continue
		}

		key := Key(name)
		if owner, ok := owners[key]; ok {
			logger.Warn("property names collide, keeping the later one",
				zap.String("key", key), zap.String("kept", name), zap.String("dropped", owner))
		}
		owners[key] = name
		record[key] = v
	}
	return record, nil
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	}
	return false
}
