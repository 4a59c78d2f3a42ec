package model_test

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/internal/model"
)

func TestLedgerScanMixedEntries(t *testing.T) {
	raw := `["old_scan.pdf", {"filename":"1700000000_01HZ_report.pdf","original_name":"report.pdf","size":2000,"mime_type":"application/pdf","uploaded_at":"2023-11-14T22:13:20Z"}]`

	var l model.Ledger
	require.NoError(t, l.Scan([]byte(raw)))
	require.Len(t, l, 2)

	assert.True(t, l[0].IsLegacy())
	assert.False(t, l[1].IsLegacy())

	norm := l.Normalized()
	assert.Equal(t, model.AttachmentEntry{Filename: "old_scan.pdf", OriginalName: "old_scan.pdf"}, norm[0])
	assert.Nil(t, norm[0].UploadedAt)
	assert.Equal(t, int64(2000), norm[1].Size)
	require.NotNil(t, norm[1].UploadedAt)
	assert.Equal(t, int64(1700000000), norm[1].UploadedAt.Unix())
}

func TestLedgerValuePreservesLegacyStrings(t *testing.T) {
	ts := time.Unix(1700000000, 0).UTC()
	l := model.Ledger{
		model.LegacyEntry("old_scan.pdf"),
		{Filename: "1700000000_01HZ_a.txt", OriginalName: "a.txt", Size: 3, MimeType: "text/plain", UploadedAt: &ts},
	}

	v, err := l.Value()
	require.NoError(t, err)

	var decoded []any
	require.NoError(t, sonic.UnmarshalString(v.(string), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "old_scan.pdf", decoded[0])

	obj, ok := decoded[1].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a.txt", obj["original_name"])

	var back model.Ledger
	require.NoError(t, back.Scan(v))
	assert.Equal(t, l.Filenames(), back.Filenames())
	assert.True(t, back[0].IsLegacy())
	require.NotNil(t, back[1].UploadedAt)
	assert.True(t, ts.Equal(*back[1].UploadedAt))
}

func TestLedgerScanEmptyAndNull(t *testing.T) {
	for _, src := range []any{nil, "", []byte("  "), "[]", "[null]"} {
		var l model.Ledger
		require.NoError(t, l.Scan(src))
		assert.Empty(t, l)
	}

	var l model.Ledger
	assert.Error(t, l.Scan(42))
	assert.Error(t, l.Scan("{not json"))

	v, err := model.Ledger(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestLedgerWithoutAndAppend(t *testing.T) {
	l := model.Ledger{model.LegacyEntry("a"), {Filename: "b"}, {Filename: "c"}}

	out, removed := l.Without("a")
	assert.True(t, removed)
	assert.Equal(t, []string{"b", "c"}, out.Filenames())
	assert.Len(t, l, 3)

	same, removed := l.Without("zzz")
	assert.False(t, removed)
	assert.Equal(t, l.Filenames(), same.Filenames())

	grown := out.Append(model.AttachmentEntry{Filename: "d"})
	assert.Equal(t, []string{"b", "c", "d"}, grown.Filenames())
	assert.Len(t, out, 2)

	e, ok := l.Find("a")
	assert.True(t, ok)
	assert.True(t, e.IsLegacy())
	assert.True(t, l.Contains("c"))
}

func TestOwnerKind(t *testing.T) {
	k, err := model.ParseOwnerKind("incidents")
	require.NoError(t, err)
	assert.Equal(t, "Incident", k.Label())
	assert.Equal(t, "incident_id", k.IDField())
	assert.Equal(t, "Case", model.KindCase.Label())
	assert.Equal(t, "case_id", model.KindCase.IDField())

	_, err = model.ParseOwnerKind("victims")
	assert.Error(t, err)

	id, err := model.ParseOwnerID("42")
	require.NoError(t, err)
	assert.Equal(t, "cases/42", model.OwnerRef{Kind: model.KindCase, ID: id}.String())

	for _, bad := range []string{"", "0", "-1", "abc"} {
		_, err := model.ParseOwnerID(bad)
		assert.Error(t, err, bad)
	}
}
