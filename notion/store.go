// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notion

import "context"

// Reader is the read-only view of the Notion API this service needs.
type Reader interface {
	// QueryDatabase returns every page of the database, in upstream order.
	QueryDatabase(ctx context.Context, databaseID string) ([]Page, error)

	// GetPageProperty returns one property of a page. ErrObjectNotFound is
	// returned (wrapped) when the page does not exist or is not shared with
	// the integration.
	GetPageProperty(ctx context.Context, pageID, property string) (Property, error)
}
