package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/casevault/pkg/cache"
	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/internal/storage/blob"
	"github.com/yeisme/casevault/pkg/metrics"
	"github.com/yeisme/casevault/pkg/rule"
	"github.com/yeisme/casevault/pkg/tracing"
)

const (
	// sniffLen 服务端探测 MIME 时读取的字节数.
	sniffLen = 3072
	// octetStream 未知类型.
	octetStream = "application/octet-stream"
	// uploadField 上传表单字段名，出现在校验错误中.
	uploadField = "evidence_files"
)

// RawFile 一个待上传的文件.
type RawFile struct {
	Name        string // 客户端提供的原始文件名
	Size        int64
	ContentType string // 客户端声明的类型，可为空
	Open        func() (io.ReadCloser, error)
}

// UploadResult 上传结果，只包含本次新增的条目.
type UploadResult struct {
	Uploaded   []model.AttachmentEntry
	TotalFiles int
}

// Download 打开的附件流，调用方负责关闭 Body.
type Download struct {
	Body        io.ReadCloser
	Object      blob.Object
	Name        string // Content-Disposition 使用的展示名
	ContentType string
}

// AttachmentService 证据附件账本服务.
type AttachmentService struct {
	repo   *LedgerRepository
	blob   blob.Store
	cache  *cache.Cache
	pub    message.Publisher
	cfg    configs.AttachmentConfig
	events configs.EventsConfig
	deps   Deps
	l      *zerolog.Logger
}

// NewAttachmentService 创建附件服务.
func NewAttachmentService(d Deps) *AttachmentService {
	return &AttachmentService{
		repo:   NewLedgerRepository(d.DB, d.Attachment.LockAttempts),
		blob:   d.Blob,
		cache:  d.Cache,
		pub:    d.Publisher,
		cfg:    d.Attachment,
		events: d.Events,
		deps:   d,
		l:      d.logger(),
	}
}

// CacheKey 返回账本列表的缓存键.
func CacheKey(ref model.OwnerRef) string {
	return "ledger." + string(ref.Kind) + "." + ref.IDString()
}

// Upload 校验并写入文件，全部写入成功后一次性追加到账本.
// 任一文件写入或账本提交失败时删除本次已写入的对象，账本保持不变.
func (s *AttachmentService) Upload(ctx context.Context, ref model.OwnerRef, files []RawFile) (*UploadResult, error) {
	ctx, span := s.start(ctx, "attachment.upload", ref, attribute.Int("files", len(files)))
	defer span.End()

	res, err := s.upload(ctx, ref, files)
	s.observe(span, ref, "upload", err)

	return res, err
}

func (s *AttachmentService) upload(ctx context.Context, ref model.OwnerRef, files []RawFile) (*UploadResult, error) {
	if err := s.repo.Exists(ctx, ref); err != nil {
		return nil, err
	}

	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	entries, keys, err := s.stage(ctx, ref, files)
	if err != nil {
		s.rollback(ctx, keys)
		return nil, err
	}

	ledger, err := s.repo.Mutate(ctx, ref, func(cur model.Ledger) (model.Ledger, bool, error) {
		return cur.Append(entries...), true, nil
	})
	if err != nil {
		s.rollback(ctx, keys)
		return nil, err
	}

	s.invalidate(ctx, ref)
	s.publishStored(ctx, ref, entries, keys, len(ledger))

	var total int64
	for _, e := range entries {
		total += e.Size
	}

	metrics.AttachmentBytes.WithLabelValues(string(ref.Kind)).Add(float64(total))
	s.l.Info().
		Str("owner", ref.String()).
		Int("files", len(entries)).
		Str("bytes", humanize.IBytes(uint64(total))).
		Int("total_files", len(ledger)).
		Str("actor", ActorFrom(ctx)).
		Msg("attachments uploaded")

	return &UploadResult{Uploaded: entries, TotalFiles: len(ledger)}, nil
}

// validateFiles 在任何写入之前检查数量与大小.
func (s *AttachmentService) validateFiles(files []RawFile) error {
	if len(files) == 0 {
		return &ValidationError{
			Message: "The evidence files field is required.",
			Fields:  map[string]string{uploadField: "required"},
		}
	}

	if s.cfg.MaxFiles > 0 && len(files) > s.cfg.MaxFiles {
		return &ValidationError{
			Message: fmt.Sprintf("The evidence files field must not have more than %d items.", s.cfg.MaxFiles),
			Fields:  map[string]string{uploadField: fmt.Sprintf("max=%d", s.cfg.MaxFiles)},
		}
	}

	limit := s.cfg.MaxFileBytes()
	fields := make(map[string]string)
	first := ""

	for i, f := range files {
		field := fmt.Sprintf("%s.%d", uploadField, i)

		switch {
		case f.Open == nil || f.Size < 0:
			fields[field] = "invalid file"
		case f.Size > limit:
			fields[field] = fmt.Sprintf("must not be greater than %d kilobytes", limit/1024)
		default:
			continue
		}

		if first == "" {
			first = fmt.Sprintf("The %s field %s.", field, fields[field])
		}
	}

	if len(fields) == 0 {
		return nil
	}

	tooLarge := false

	for _, f := range files {
		if f.Size > limit {
			tooLarge = true
			break
		}
	}

	return &ValidationError{Message: first, Fields: fields, TooLarge: tooLarge}
}

// stage 按顺序写入所有文件，返回条目与已写入的键.
func (s *AttachmentService) stage(ctx context.Context, ref model.OwnerRef, files []RawFile) ([]model.AttachmentEntry, []string, error) {
	now := s.deps.clock()
	entries := make([]model.AttachmentEntry, 0, len(files))
	keys := make([]string, 0, len(files))

	for _, f := range files {
		at := now().UTC()
		name := StoredName(at, f.Name)
		key := blob.Key(string(ref.Kind), ref.IDString(), name)

		ct, err := s.put(ctx, key, f)
		if err != nil {
			return nil, keys, storageError("write "+key, err)
		}

		keys = append(keys, key)
		entries = append(entries, model.AttachmentEntry{
			Filename:     name,
			OriginalName: f.Name,
			Size:         f.Size,
			MimeType:     ct,
			UploadedAt:   &at,
		})
	}

	return entries, keys, nil
}

// put 写入单个文件，客户端未声明类型时探测内容.
func (s *AttachmentService) put(ctx context.Context, key string, f RawFile) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}

	defer func() { _ = rc.Close() }()

	ct := f.ContentType

	var r io.Reader = rc

	if ct == "" || ct == octetStream {
		ct, r, err = sniff(rc)
		if err != nil {
			return "", err
		}
	}

	if err := s.blob.Put(ctx, key, r, f.Size, ct); err != nil {
		return "", err
	}

	return ct, nil
}

func sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)

	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}

	head = head[:n]

	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// rollback 尽力删除本次调用写入的对象.
func (s *AttachmentService) rollback(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)

	for _, key := range keys {
		if err := s.blob.Delete(ctx, key); err != nil {
			s.l.Error().Err(err).Str("key", key).Msg("rollback staged blob failed")
		}
	}
}

// List 返回归一化后的账本，不访问 blob 存储.
func (s *AttachmentService) List(ctx context.Context, ref model.OwnerRef) ([]model.AttachmentEntry, error) {
	ctx, span := s.start(ctx, "attachment.list", ref)
	defer span.End()

	load := func(ctx context.Context) ([]model.AttachmentEntry, error) {
		ledger, _, err := s.repo.Load(ctx, ref)
		if err != nil {
			return nil, err
		}

		return ledger.Normalized(), nil
	}

	var (
		files []model.AttachmentEntry
		err   error
	)

	if s.cache != nil {
		files, err = cache.GetOrSet(ctx, s.cache, CacheKey(ref), load, s.cfg.CacheTTL)
	} else {
		files, err = load(ctx)
	}

	s.observe(span, ref, "list", err)

	if files == nil && err == nil {
		files = []model.AttachmentEntry{}
	}

	return files, err
}

// Remove 从账本中去掉文件并删除对象，文件不在账本中时为无操作.
// 返回剩余条目数.
func (s *AttachmentService) Remove(ctx context.Context, ref model.OwnerRef, filename string) (int, error) {
	ctx, span := s.start(ctx, "attachment.remove", ref, attribute.String("filename", filename))
	defer span.End()

	remaining, err := s.remove(ctx, ref, filename)
	s.observe(span, ref, "remove", err)

	return remaining, err
}

func (s *AttachmentService) remove(ctx context.Context, ref model.OwnerRef, filename string) (int, error) {
	if err := validateFilename(filename); err != nil {
		return 0, err
	}

	inLedger := false

	ledger, err := s.repo.Mutate(ctx, ref, func(cur model.Ledger) (model.Ledger, bool, error) {
		next, removed := cur.Without(filename)
		inLedger = removed

		return next, removed, nil
	})
	if err != nil {
		return 0, err
	}

	key := blob.Key(string(ref.Kind), ref.IDString(), filename)
	if err := s.blob.Delete(ctx, key); err != nil {
		// 账本已提交，残留对象交给孤儿清理
		s.l.Error().Err(err).Str("key", key).Msg("delete removed blob failed")
	}

	if inLedger {
		s.invalidate(ctx, ref)
		s.publishRemoved(ctx, ref, filename, key, len(ledger))
		s.l.Info().
			Str("owner", ref.String()).
			Str("filename", filename).
			Int("remaining_files", len(ledger)).
			Str("actor", ActorFrom(ctx)).
			Msg("attachment removed")
	}

	return len(ledger), nil
}

// Download 直接按键打开对象，不要求文件在账本中.
func (s *AttachmentService) Download(ctx context.Context, ref model.OwnerRef, filename string) (*Download, error) {
	ctx, span := s.start(ctx, "attachment.download", ref, attribute.String("filename", filename))
	defer span.End()

	d, err := s.download(ctx, ref, filename)
	s.observe(span, ref, "download", err)

	return d, err
}

func (s *AttachmentService) download(ctx context.Context, ref model.OwnerRef, filename string) (*Download, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}

	ledger, _, err := s.repo.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	key := blob.Key(string(ref.Kind), ref.IDString(), filename)

	body, obj, err := s.blob.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fileNotFound()
	}

	if err != nil {
		return nil, storageError("read "+key, err)
	}

	d := &Download{Body: body, Object: obj, Name: filename, ContentType: obj.ContentType}

	if e, ok := ledger.Find(filename); ok {
		e = e.Normalized()
		if e.OriginalName != "" {
			d.Name = e.OriginalName
		}

		if d.ContentType == "" {
			d.ContentType = e.MimeType
		}
	}

	if d.ContentType == "" {
		d.ContentType = octetStream
	}

	return d, nil
}

// PurgeAll 删除记录前缀下的所有对象，前缀为空或部分缺失时同样成功.
func (s *AttachmentService) PurgeAll(ctx context.Context, ref model.OwnerRef, reason string) (int, error) {
	ctx, span := s.start(ctx, "attachment.purge", ref, attribute.String("reason", reason))
	defer span.End()

	prefix := blob.OwnerPrefix(string(ref.Kind), ref.IDString())

	n, err := s.blob.DeletePrefix(ctx, prefix)
	s.invalidate(ctx, ref)

	if err != nil {
		err = storageError("purge "+prefix, err)
		s.observe(span, ref, "purge", err)

		return n, err
	}

	s.observe(span, ref, "purge", nil)
	s.publishPurged(ctx, ref, prefix, n, reason)
	s.l.Info().
		Str("owner", ref.String()).
		Int("deleted", n).
		Str("reason", reason).
		Msg("attachments purged")

	return n, nil
}

func validateFilename(filename string) error {
	if filename == "" {
		return NewValidationError("filename", "is required")
	}

	if !rule.IsBlobName(filename) {
		return NewValidationError("filename", "is invalid")
	}

	return nil
}

func (s *AttachmentService) invalidate(ctx context.Context, ref model.OwnerRef) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(context.WithoutCancel(ctx), CacheKey(ref)); err != nil {
		s.l.Warn().Err(err).Str("owner", ref.String()).Msg("invalidate ledger cache failed")
	}
}

func (s *AttachmentService) start(ctx context.Context, name string, ref model.OwnerRef, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("owner.kind", string(ref.Kind)),
		attribute.Int64("owner.id", int64(ref.ID)),
	)

	return tracing.StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

func (s *AttachmentService) observe(span trace.Span, ref model.OwnerRef, op string, err error) {
	metrics.AttachmentOps.WithLabelValues(string(ref.Kind), op, metrics.Result(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
