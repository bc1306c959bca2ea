// Copyright 2026 The chainscan Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chainlog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTextFormatWritesKeyValueLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Text)
	LevelProgress(l, 2, 5, 120)

	out := buf.String()
	require.Contains(t, out, "level processed")
	require.Contains(t, out, "level=2")
	require.Contains(t, out, "sinks=5")
	require.Contains(t, out, "frontier=120")
}

func TestNewJSONFormatWritesParseableObject(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, JSON)
	ModuleChainCount(l, "lib.so", 1, 2, 42)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	require.Equal(t, "module chains", record["msg"])
	require.Equal(t, "lib.so", record["module"])
	require.InDelta(t, 42, record["count"], 0)
}

func TestNewFallsBackToTextForUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Format("bogus"))
	l.Info("hello")
	require.True(t, strings.Contains(buf.String(), "msg=hello"))
}
