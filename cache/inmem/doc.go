// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package inmem provides a process local cache, suitable for a single instance
or for development.
*/
package inmem
