package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/casevault/pkg/cache"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/service"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	"github.com/yeisme/casevault/pkg/internal/storage/kv"
	"github.com/yeisme/casevault/pkg/queue"
)

func readAll(t *testing.T, d *service.Download) []byte {
	t.Helper()

	defer func() { _ = d.Body.Close() }()

	b, err := io.ReadAll(d.Body)
	require.NoError(t, err)

	return b
}

func TestUploadListRemoveDownloadScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-42")

	photo := payload(500000)

	res, err := env.svc.Upload(ctx, ref, []service.RawFile{
		rawFile("report.pdf", payload(2000), "application/pdf"),
		rawFile("photo one.jpg", photo, "image/jpeg"),
	})
	require.NoError(t, err)
	require.Len(t, res.Uploaded, 2)
	assert.Equal(t, 2, res.TotalFiles)

	assert.Regexp(t, `^\d+_[A-Za-z0-9]+_report\.pdf$`, res.Uploaded[0].Filename)
	assert.Regexp(t, `^\d+_[A-Za-z0-9]+_photoone\.jpg$`, res.Uploaded[1].Filename)
	assert.Equal(t, "photo one.jpg", res.Uploaded[1].OriginalName)
	assert.Equal(t, int64(500000), res.Uploaded[1].Size)
	assert.Equal(t, "image/jpeg", res.Uploaded[1].MimeType)
	require.NotNil(t, res.Uploaded[0].UploadedAt)

	files, err := env.svc.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, res.Uploaded[0].Filename, files[0].Filename)
	assert.Equal(t, res.Uploaded[1].Filename, files[1].Filename)
	assert.Equal(t, int64(2000), files[0].Size)

	remaining, err := env.svc.Remove(ctx, ref, res.Uploaded[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	d, err := env.svc.Download(ctx, ref, res.Uploaded[1].Filename)
	require.NoError(t, err)
	assert.Equal(t, "photo one.jpg", d.Name)
	assert.Equal(t, "image/jpeg", d.ContentType)
	assert.Equal(t, photo, readAll(t, d))
}

func TestUploadSniffsMissingContentType(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-1")

	pdf := append([]byte("%PDF-1.7\n"), payload(100)...)

	res, err := env.svc.Upload(ctx, ref, []service.RawFile{rawFile("scan", pdf, "")})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.Uploaded[0].MimeType)

	d, err := env.svc.Download(ctx, ref, res.Uploaded[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, pdf, readAll(t, d))
}

func TestRemoveAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-2")

	_, err := env.svc.Upload(ctx, ref, []service.RawFile{rawFile("a.txt", payload(3), "text/plain")})
	require.NoError(t, err)

	first, err := env.svc.Remove(ctx, ref, "nonexistent.txt")
	require.NoError(t, err)

	second, err := env.svc.Remove(ctx, ref, "nonexistent.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, first, second)
}

func TestRemoveThenDownloadNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-3")

	res, err := env.svc.Upload(ctx, ref, []service.RawFile{rawFile("x.txt", payload(10), "text/plain")})
	require.NoError(t, err)

	name := res.Uploaded[0].Filename

	_, err = env.svc.Remove(ctx, ref, name)
	require.NoError(t, err)

	files, err := env.svc.List(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = env.svc.Download(ctx, ref, name)
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "File not found", err.Error())
	assert.Equal(t, http.StatusNotFound, service.MapHTTPStatus(err))
	assert.Zero(t, env.blobs.Len())
}

func TestUploadOversizeIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-4")

	limit := env.deps.Attachment.MaxFileBytes()
	require.Equal(t, int64(10485760), limit)

	oversize := service.RawFile{
		Name: "huge.bin",
		Size: limit + 1,
		Open: func() (io.ReadCloser, error) {
			t.Fatal("oversized file must not be opened")
			return nil, nil
		},
	}

	_, err := env.svc.Upload(ctx, ref, []service.RawFile{
		rawFile("one.txt", payload(10), "text/plain"),
		oversize,
		rawFile("three.txt", payload(10), "text/plain"),
	})
	require.ErrorIs(t, err, service.ErrValidation)
	require.ErrorIs(t, err, service.ErrTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, service.MapHTTPStatus(err))

	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "evidence_files.1")
	assert.Equal(t, "The evidence_files.1 field must not be greater than 10240 kilobytes.", ve.Message)

	files, err := env.svc.List(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, env.blobs.Len())
}

func TestUploadExactLimitAccepted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-5")

	res, err := env.svc.Upload(ctx, ref, []service.RawFile{
		rawFile("limit.bin", payload(int(env.deps.Attachment.MaxFileBytes())), "application/octet-stream"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalFiles)
}

func TestUploadEmptyRejected(t *testing.T) {
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-6")

	_, err := env.svc.Upload(context.Background(), ref, nil)
	require.ErrorIs(t, err, service.ErrValidation)
	assert.Equal(t, http.StatusUnprocessableEntity, service.MapHTTPStatus(err))
}

func TestUploadWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex

	puts := 0
	env := newTestEnv(t, blob.WithPutFailure(func(string) error {
		mu.Lock()
		defer mu.Unlock()

		puts++
		if puts == 3 {
			return errors.New("disk full")
		}

		return nil
	}))
	ref := env.newCase(t, "CV-7")

	_, err := env.svc.Upload(ctx, ref, []service.RawFile{
		rawFile("a.txt", payload(1), "text/plain"),
		rawFile("b.txt", payload(2), "text/plain"),
		rawFile("c.txt", payload(3), "text/plain"),
	})
	require.ErrorIs(t, err, service.ErrStorage)
	assert.Equal(t, http.StatusInternalServerError, service.MapHTTPStatus(err))

	files, err := env.svc.List(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Zero(t, env.blobs.Len())
}

func TestOwnerNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	missingCase := model.OwnerRef{Kind: model.KindCase, ID: 999}
	missingIncident := model.OwnerRef{Kind: model.KindIncident, ID: 999}

	_, err := env.svc.Upload(ctx, missingCase, []service.RawFile{rawFile("a.txt", payload(1), "")})
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "Case not found", err.Error())

	_, err = env.svc.List(ctx, missingIncident)
	require.ErrorIs(t, err, service.ErrNotFound)
	assert.Equal(t, "Incident not found", err.Error())

	_, err = env.svc.Remove(ctx, missingCase, "a.txt")
	assert.Equal(t, "Case not found", err.Error())

	_, err = env.svc.Download(ctx, missingIncident, "a.txt")
	assert.Equal(t, "Incident not found", err.Error())
	assert.Zero(t, env.blobs.Len())
}

func TestFilenameArgumentValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-8")

	for _, name := range []string{"", "..", "../cases/1/x", `a\b`, "a\x00b"} {
		_, err := env.svc.Remove(ctx, ref, name)
		require.ErrorIs(t, err, service.ErrValidation, "remove %q", name)

		_, err = env.svc.Download(ctx, ref, name)
		require.ErrorIs(t, err, service.ErrValidation, "download %q", name)
	}

	var ve *service.ValidationError

	_, err := env.svc.Remove(ctx, ref, "")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "is required", ve.Fields["filename"])
}

func TestDownloadUnlistedBlob(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-9")

	key := blob.Key(string(ref.Kind), ref.IDString(), "stray.txt")
	require.NoError(t, env.blobs.Put(ctx, key, bytesReader("stray"), 5, ""))

	d, err := env.svc.Download(ctx, ref, "stray.txt")
	require.NoError(t, err)
	assert.Equal(t, "stray.txt", d.Name)
	assert.Equal(t, "application/octet-stream", d.ContentType)
	assert.Equal(t, []byte("stray"), readAll(t, d))
}

func TestLegacyBareStringEntries(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-10")

	require.NoError(t, env.db.Exec(
		`UPDATE cases SET evidence_files = ? WHERE id = ?`,
		`["oldfile.png",{"filename":"1700000000_01HF_new.txt","original_name":"new.txt","size":3,"mime_type":"text/plain","uploaded_at":"2023-11-14T22:13:20Z"}]`,
		ref.ID,
	).Error)

	key := blob.Key(string(ref.Kind), ref.IDString(), "oldfile.png")
	require.NoError(t, env.blobs.Put(ctx, key, bytesReader("png"), 3, "image/png"))

	files, err := env.svc.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, model.AttachmentEntry{Filename: "oldfile.png", OriginalName: "oldfile.png"}, files[0])

	d, err := env.svc.Download(ctx, ref, "oldfile.png")
	require.NoError(t, err)
	assert.Equal(t, "oldfile.png", d.Name)
	assert.Equal(t, []byte("png"), readAll(t, d))

	remaining, err := env.svc.Remove(ctx, ref, "oldfile.png")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	exists, err := env.blobs.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	var raw string
	require.NoError(t, env.db.Raw(`SELECT evidence_files FROM cases WHERE id = ?`, ref.ID).Scan(&raw).Error)
	assert.NotContains(t, raw, "oldfile.png")
	assert.Contains(t, raw, "1700000000_01HF_new.txt")
}

func TestLegacyStringPreservedOnUpload(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-11")

	require.NoError(t, env.db.Exec(`UPDATE cases SET evidence_files = ? WHERE id = ?`, `["legacy.doc"]`, ref.ID).Error)

	_, err := env.svc.Upload(ctx, ref, []service.RawFile{rawFile("n.txt", payload(1), "text/plain")})
	require.NoError(t, err)

	var raw string
	require.NoError(t, env.db.Raw(`SELECT evidence_files FROM cases WHERE id = ?`, ref.ID).Scan(&raw).Error)
	assert.Regexp(t, `^\["legacy\.doc",\{`, raw)
}

func TestConcurrentUploadsKeepEveryEntry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-12")

	const n = 8

	var wg sync.WaitGroup

	errs := make(chan error, n)

	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := env.svc.Upload(ctx, ref, []service.RawFile{
				rawFile(fmt.Sprintf("file-%d.txt", i), payload(i+1), "text/plain"),
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	files, err := env.svc.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, files, n)

	seen := make(map[string]bool, n)
	for _, f := range files {
		assert.False(t, seen[f.Filename], "duplicate filename %s", f.Filename)
		seen[f.Filename] = true
	}

	assert.Equal(t, n, env.blobs.Len())
}

func TestPurgeAllRemovesEverything(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	ref := env.newCase(t, "CV-13")
	other := env.newCase(t, "CV-14")

	_, err := env.svc.Upload(ctx, ref, []service.RawFile{
		rawFile("a.txt", payload(1), "text/plain"),
		rawFile("b.txt", payload(2), "text/plain"),
	})
	require.NoError(t, err)

	_, err = env.svc.Upload(ctx, other, []service.RawFile{rawFile("c.txt", payload(1), "text/plain")})
	require.NoError(t, err)

	n, err := env.svc.PurgeAll(ctx, ref, service.PurgeReasonManual)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := env.blobs.List(ctx, blob.OwnerPrefix(string(ref.Kind), ref.IDString()))
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 1, env.blobs.Len())

	n, err = env.svc.PurgeAll(ctx, ref, service.PurgeReasonManual)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListCacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	store := kv.NewMemoryKV()

	env.deps.Cache = cache.NewCache(store)
	env.rebuild()

	ref := env.newCase(t, "CV-15")

	files, err := env.svc.List(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, files)

	ok, err := store.Exists(ctx, service.CacheKey(ref))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ledger.cases."+ref.IDString(), service.CacheKey(ref))

	res, err := env.svc.Upload(ctx, ref, []service.RawFile{rawFile("a.txt", payload(1), "text/plain")})
	require.NoError(t, err)

	files, err = env.svc.List(ctx, ref)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, res.Uploaded[0].Filename, files[0].Filename)

	_, err = env.svc.Remove(ctx, ref, files[0].Filename)
	require.NoError(t, err)

	files, err = env.svc.List(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, files)
}

// gatedKV 让第一次 Set 阻塞到 release 关闭.
type gatedKV struct {
	*kv.MemoryKV

	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})

	return g.MemoryKV.Set(ctx, key, value, ttl)
}

func TestListFillRacingUploadDoesNotHideEntry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	store := &gatedKV{MemoryKV: kv.NewMemoryKV(), entered: make(chan struct{}), release: make(chan struct{})}

	env.deps.Cache = cache.NewCache(store)
	env.rebuild()

	ref := env.newCase(t, "CV-16")

	listed := make(chan []model.AttachmentEntry, 1)

	go func() {
		files, err := env.svc.List(ctx, ref)
		assert.NoError(t, err)

		listed <- files
	}()

	// List 已读到空账本，写回被挡住时完成上传.
	<-store.entered

	res, err := env.svc.Upload(ctx, ref, []service.RawFile{rawFile("report.pdf", payload(2000), "application/pdf")})
	require.NoError(t, err)
	require.Len(t, res.Uploaded, 1)

	close(store.release)
	assert.Empty(t, <-listed)

	for range 2 {
		files, err := env.svc.List(ctx, ref)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, res.Uploaded[0].Filename, files[0].Filename)
	}
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env := newTestEnv(t)

	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	stored, err := pubsub.Subscribe(ctx, queue.TopicAttachmentStored)
	require.NoError(t, err)

	removed, err := pubsub.Subscribe(ctx, queue.TopicAttachmentRemoved)
	require.NoError(t, err)

	env.deps.Publisher = pubsub
	env.rebuild()

	ref := env.newCase(t, "CV-16")
	actx := service.WithActor(ctx, "focal@example.org")

	res, err := env.svc.Upload(actx, ref, []service.RawFile{rawFile("a.txt", payload(4), "text/plain")})
	require.NoError(t, err)

	select {
	case m := <-stored:
		evt, err := queue.ParseAttachmentStored(m)
		require.NoError(t, err)
		assert.Equal(t, "focal@example.org", evt.Header.Actor)
		assert.Equal(t, queue.OwnerRef{Kind: "cases", ID: ref.ID}, evt.Payload.Owner)
		require.Len(t, evt.Payload.Attachments, 1)
		assert.Equal(t, res.Uploaded[0].Filename, evt.Payload.Attachments[0].Filename)
		assert.Equal(t, 1, evt.Payload.TotalFiles)
		m.Ack()
	case <-ctx.Done():
		t.Fatal("stored event not published")
	}

	_, err = env.svc.Remove(actx, ref, res.Uploaded[0].Filename)
	require.NoError(t, err)

	select {
	case m := <-removed:
		evt, err := queue.ParseAttachmentRemoved(m)
		require.NoError(t, err)
		assert.Equal(t, res.Uploaded[0].Filename, evt.Payload.Filename)
		assert.Zero(t, evt.Payload.RemainingFiles)
		m.Ack()
	case <-ctx.Done():
		t.Fatal("removed event not published")
	}
}
