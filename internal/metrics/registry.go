// Copyright (C) 2025 veilnet
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package metrics exposes node-level Prometheus metrics: envelope
// routing, federation/bootstrap state, presence/sweep activity, and
// cryptographic operation counts, alongside a lightweight in-process
// Collector (GetGlobalCollector) that keeps a cheap summary of bootstrap
// and sweep activity without scraping the full registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "veilnet"

// Registry is the node's private Prometheus registry. Using a private
// registry rather than prometheus.DefaultRegisterer keeps test runs free
// of cross-package global registration panics.
var Registry = prometheus.NewRegistry()
