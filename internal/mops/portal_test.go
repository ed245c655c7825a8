package mops_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mopshttp "github.com/YenHsinCHEN/MopsDownloader/internal/http"
	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
	"github.com/YenHsinCHEN/MopsDownloader/internal/testutils"
)

func TestResolveAgainstPortal(t *testing.T) {
	direct := testutils.Filing{CompanyID: "2330", Year: "2024", Season: 2, Type: mops.Financial, Content: testutils.MinimalPDF("Q2")}
	linked := testutils.Filing{CompanyID: "2330", Year: "2023", Type: mops.Annual, Content: testutils.MinimalPDF("annual"), Intermediate: true}
	portal := testutils.StartPortal(t, direct, linked)

	opts := mopshttp.DefaultOptions()
	opts.RequestsPerSecond = 0
	r, err := mops.NewResolver(mopshttp.NewClient(opts), mops.Options{Origin: portal.URL})
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    mops.Query
		want     []byte
		requests int
	}{
		{
			name:     "direct PDF",
			query:    mops.Query{CompanyID: "2330", Year: "2024", Season: 2, Type: mops.Financial},
			want:     direct.Content,
			requests: 2,
		},
		{
			name:     "intermediate page",
			query:    mops.Query{CompanyID: "2330", Year: "2023", Type: mops.Annual},
			want:     linked.Content,
			requests: 3,
		},
	}

	seen := 0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := r.Resolve(context.Background(), tt.query)
			require.Equal(t, mops.StatusSuccess, o.Status, o.Reason)
			defer o.Body.Close()

			got, err := io.ReadAll(o.Body)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.want, got))

			total := len(portal.Requests())
			assert.Equal(t, tt.requests, total-seen)
			seen = total
		})
	}
}

func TestResolveMissingSeason(t *testing.T) {
	portal := testutils.StartPortal(t, testutils.Filing{CompanyID: "2330", Year: "2024", Season: 1, Type: mops.Financial, Content: []byte("%PDF")})

	opts := mopshttp.DefaultOptions()
	opts.RequestsPerSecond = 0
	r, err := mops.NewResolver(mopshttp.NewClient(opts), mops.Options{Origin: portal.URL})
	require.NoError(t, err)

	o := r.Resolve(context.Background(), mops.Query{CompanyID: "2330", Year: "2024", Season: 4, Type: mops.Financial})

	assert.Equal(t, mops.StatusNotFound, o.Status)
	assert.Equal(t, "查無所需資料 (no matching data)", o.Reason)
	assert.Nil(t, o.Body)
}
