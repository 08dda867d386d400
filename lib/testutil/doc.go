// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for codec packages.
//
// [WriteFile] writes a fixture file (a schema, a config, an exported
// baseline) into a per-test temporary directory and returns its path.
//
// [RequireNoError] and [RequireErrorIs] collapse the
// "if err != nil { t.Fatalf(...) }" pattern for setup steps whose
// failure leaves nothing to test.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as class names of baselines stored in a shared
// store.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no internal dependencies.
package testutil
