package service_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	"github.com/yeisme/casevault/pkg/internal/storage/db"
)

type testEnv struct {
	db     *gorm.DB
	blobs  *blob.MemoryStore
	deps   service.Deps
	svc    *service.AttachmentService
	owners *service.OwnerService
}

func newTestEnv(t *testing.T, opts ...blob.MemoryOption) *testEnv {
	t.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "casevault.db") + "?_pragma=busy_timeout(5000)"

	client, err := db.Open(ctx, sqlite.Open(dsn), 1, 1)
	require.NoError(t, err)
	require.NoError(t, client.Migrate(ctx, model.All()...))

	t.Cleanup(func() { _ = client.Close() })

	cfg := configs.Default()
	store := blob.NewMemory(opts...)

	env := &testEnv{
		db:    client.GetDB(),
		blobs: store,
		deps: service.Deps{
			DB:         client.GetDB(),
			Blob:       store,
			Attachment: cfg.Attachment,
			Events:     cfg.Events,
		},
	}
	env.rebuild()

	return env
}

// rebuild 在修改 deps 后重新创建服务.
func (e *testEnv) rebuild() {
	e.svc = service.NewAttachmentService(e.deps)
	e.owners = service.NewOwnerService(e.deps)
}

func (e *testEnv) newCase(t *testing.T, number string) model.OwnerRef {
	t.Helper()

	c, err := e.owners.CreateCase(context.Background(), service.CreateCaseInput{CaseNumber: number, Title: "case " + number})
	require.NoError(t, err)

	return model.OwnerRef{Kind: model.KindCase, ID: c.ID}
}

func (e *testEnv) newIncident(t *testing.T, caseRef model.OwnerRef) model.OwnerRef {
	t.Helper()

	inc, err := e.owners.CreateIncident(context.Background(), caseRef.ID, service.CreateIncidentInput{Title: "incident"})
	require.NoError(t, err)

	return model.OwnerRef{Kind: model.KindIncident, ID: inc.ID}
}

func rawFile(name string, data []byte, contentType string) service.RawFile {
	return service.RawFile{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func payload(n int) []byte {
	return bytes.Repeat([]byte{'x'}, n)
}

func bytesReader(s string) io.Reader {
	return bytes.NewReader([]byte(s))
}
