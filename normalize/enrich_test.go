// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/streamdex/model"
	"github.com/xmidt-org/streamdex/notion"
)

const (
	testID     = "7f1b1c7e-3b9a-4b6e-9f1e-2f1c1f7a9d01"
	testOrigin = "https://x.test"
)

func TestPublishJaneDoe(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
	)

	record, err := Normalize(map[string]notion.Property{
		"Name":    {Type: notion.TitleType, Title: text("Jane Doe")},
		"Publish": {Type: notion.CheckboxType, Checkbox: boolPtr(true)},
		"Slug":    {Type: notion.RichTextType, RichText: text("")},
		"Photo": {Type: notion.FilesType, Files: []notion.File{
			{Name: "pic.png", Type: notion.FileHosted, File: &notion.FileRef{URL: "https://ext/pic.png"}},
		}},
	}, nil)
	require.NoError(err)

	published, ok := Publish(record, testID, testOrigin)
	require.True(ok)
	assert.Equal(model.Record{
		"name":    "Jane Doe",
		"publish": true,
		"slug":    "jane-doe",
		"photo":   "https://x.test/streamers/" + testID + "/pic.png",
	}, published)

	data, err := json.Marshal(published)
	require.NoError(err)
	assert.NotContains(string(data), "https://ext/pic.png")
}

func TestPublish(t *testing.T) {
	tcs := []struct {
		Description   string
		Input         model.Record
		ExpectedOK    bool
		ExpectedSlug  string
		ExpectedPhoto interface{}
	}{
		{
			Description: "No name",
			Input:       model.Record{"publish": true},
		},
		{
			Description: "Name not a string",
			Input:       model.Record{"name": float64(3), "publish": true},
		},
		{
			Description: "Not published",
			Input:       model.Record{"name": "Jane"},
		},
		{
			Description: "Publish false",
			Input:       model.Record{"name": "Jane", "publish": false},
		},
		{
			Description: "Publish zero",
			Input:       model.Record{"name": "Jane", "publish": float64(0)},
		},
		{
			Description:   "Publish number",
			Input:         model.Record{"name": "Jane", "publish": float64(1)},
			ExpectedOK:    true,
			ExpectedSlug:  "jane",
			ExpectedPhoto: nil,
		},
		{
			Description:   "Publish select",
			Input:         model.Record{"name": "Jane", "publish": "Yes"},
			ExpectedOK:    true,
			ExpectedSlug:  "jane",
			ExpectedPhoto: nil,
		},
		{
			Description:   "Publish list",
			Input:         model.Record{"name": "Jane", "publish": []interface{}{"web"}},
			ExpectedOK:    true,
			ExpectedSlug:  "jane",
			ExpectedPhoto: nil,
		},
		{
			Description:   "Slug field wins",
			Input:         model.Record{"name": "Jane Doe", "publish": true, "slug": "The Real Jane"},
			ExpectedOK:    true,
			ExpectedSlug:  "the-real-jane",
			ExpectedPhoto: nil,
		},
		{
			Description:   "Slug lower cased before splitting",
			Input:         model.Record{"name": "JaneDoe", "publish": true},
			ExpectedOK:    true,
			ExpectedSlug:  "janedoe",
			ExpectedPhoto: nil,
		},
		{
			Description: "Photo name escaped",
			Input: model.Record{"name": "Jane", "publish": true, "photo": []interface{}{
				map[string]interface{}{"name": "my pic.png", "type": "file", "url": "https://ext/x"},
			}},
			ExpectedOK:    true,
			ExpectedSlug:  "jane",
			ExpectedPhoto: "https://x.test/streamers/" + testID + "/my%20pic.png",
		},
		{
			Description: "Photo without name",
			Input: model.Record{"name": "Jane", "publish": true, "photo": []interface{}{
				map[string]interface{}{"type": "file", "url": "https://ext/x"},
			}},
			ExpectedOK:    true,
			ExpectedSlug:  "jane",
			ExpectedPhoto: nil,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			published, ok := Publish(tc.Input, testID, testOrigin)
			assert.Equal(tc.ExpectedOK, ok)
			if !tc.ExpectedOK {
				assert.Nil(published)
				return
			}
			assert.Equal(tc.ExpectedSlug, published["slug"])
			photo, present := published["photo"]
			assert.True(present)
			assert.Equal(tc.ExpectedPhoto, photo)
		})
	}
}

func TestPublishSerializesNullPhoto(t *testing.T) {
	published, ok := Publish(model.Record{"name": "Jane", "publish": true}, testID, testOrigin)
	require.True(t, ok)
	data, err := json.Marshal(published)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"photo":null`)
}

func TestPublishLeavesInputAlone(t *testing.T) {
	input := model.Record{"name": "Jane", "publish": true}
	_, ok := Publish(input, testID, testOrigin)
	require.True(t, ok)
	assert.Equal(t, model.Record{"name": "Jane", "publish": true}, input)
}

func TestSlugIdempotent(t *testing.T) {
	for _, s := range []string{"Jane Doe", "JaneDoe", "Zoë O'Brien", "XMLHttp Streamer 2", "Юлия Петрова", "🎮 Gamer", "  --  "} {
		t.Run(s, func(t *testing.T) {
			once := Slug(s)
			assert.Equal(t, once, Slug(once))
			assert.Equal(t, once, Slug(s))
		})
	}
}
