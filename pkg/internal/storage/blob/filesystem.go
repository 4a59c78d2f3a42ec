package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yeisme/casevault/pkg/configs"
	nlog "github.com/yeisme/casevault/pkg/log"
)

// tmpPrefix 上传中的临时文件名前缀. 以点开头的文件名不会由上传产生，fullPath 拒绝此类键.
const tmpPrefix = ".upload-"

func init() {
	RegisterFactory(configs.BlobTypeFilesystem, func(_ context.Context, cfg *configs.BlobConfig) (Store, error) {
		return NewFilesystem(cfg.Root)
	})
}

// FilesystemStore 把对象存为根目录下的普通文件，根目录不对外暴露.
type FilesystemStore struct {
	basePath string
}

// NewFilesystem 创建本地文件存储并确保根目录存在.
func NewFilesystem(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob root required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}

	return &FilesystemStore{basePath: abs}, nil
}

// Root 返回根目录绝对路径.
func (f *FilesystemStore) Root() string {
	return f.basePath
}

func (f *FilesystemStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), tmpPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)

		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

func (f *FilesystemStore) Exists(_ context.Context, key string) (bool, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat file: %w", err)
	}

	return info.Mode().IsRegular(), nil
}

func (f *FilesystemStore) Get(_ context.Context, key string) (io.ReadCloser, Object, error) {
	path, err := f.fullPath(key)
	if err != nil {
		return nil, Object{}, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, ErrNotFound
		}

		return nil, Object{}, fmt.Errorf("open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, Object{}, fmt.Errorf("stat file: %w", err)
	}

	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, Object{}, ErrNotFound
	}

	return file, Object{Key: key, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (f *FilesystemStore) Delete(_ context.Context, key string) error {
	path, err := f.fullPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("remove file: %w", err)
	}

	f.cleanupEmptyDirs(filepath.Dir(path))

	return nil
}

func (f *FilesystemStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return 0, err
	}

	if prefix == "" {
		return 0, fmt.Errorf("%w: refusing to delete the whole store", ErrInvalidKey)
	}

	objs, err := f.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	dir := filepath.Join(f.basePath, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("remove prefix %s: %w", prefix, err)
	}

	f.cleanupEmptyDirs(filepath.Dir(dir))

	return len(objs), nil
}

func (f *FilesystemStore) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return nil, err
	}

	start := filepath.Join(f.basePath, filepath.FromSlash(strings.TrimSuffix(prefix, "/")))
	out := []Object{}

	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(f.basePath, p)
		if err != nil {
			return err
		}

		out = append(out, Object{Key: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", prefix, err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

func (f *FilesystemStore) HealthCheck(context.Context) error {
	info, err := os.Stat(f.basePath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("blob root %s is not a directory", f.basePath)
	}

	return nil
}

func (f *FilesystemStore) Close() error { return nil }

func (f *FilesystemStore) fullPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	if strings.HasPrefix(key[strings.LastIndexByte(key, '/')+1:], tmpPrefix) {
		return "", ErrInvalidKey
	}

	full := filepath.Join(f.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(full, f.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}

	return full, nil
}

// cleanupEmptyDirs 自下而上删除空目录，直到根目录.
func (f *FilesystemStore) cleanupEmptyDirs(dir string) {
	for dir != f.basePath && strings.HasPrefix(dir, f.basePath) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}

		if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			nlog.Logger().Warn().Err(err).Str("dir", dir).Msg("failed to remove empty directory")
			return
		}

		dir = filepath.Dir(dir)
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}

// readerWithContext 让长拷贝在请求取消时尽早退出.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
