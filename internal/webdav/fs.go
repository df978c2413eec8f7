// Package webdav exposes the upstream FTP tree as a read-only WebDAV share.
package webdav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/webdav"

	"github.com/ahaoboy/ftp-web/internal/download"
	"github.com/ahaoboy/ftp-web/internal/listing"
	"github.com/ahaoboy/ftp-web/internal/logging"
)

// Lister lists a remote directory without falling back to the root.
type Lister interface {
	List(ctx context.Context, p string) ([]listing.Entry, error)
}

// Fetcher retrieves a whole remote file.
type Fetcher interface {
	Fetch(ctx context.Context, p string) (*download.File, error)
}

// FTPFS implements webdav.FileSystem on top of the shared FTP session.
// Every mutating call fails with os.ErrPermission. Listings are never kept
// beyond the request that fetched them.
type FTPFS struct {
	lister  Lister
	fetcher Fetcher
	now     func() time.Time
}

var _ webdav.FileSystem = (*FTPFS)(nil)

// requestDirs memoizes listings for a single WebDAV request: a PROPFIND
// stats every child of the collection it lists.
type requestDirs struct {
	mu   sync.Mutex
	dirs map[string][]listing.Entry
}

type requestDirsKey struct{}

// withRequestDirs returns a context whose listings are shared by every
// file system call made with it.
func withRequestDirs(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestDirsKey{}, &requestDirs{dirs: make(map[string][]listing.Entry)})
}

// NewFS creates a read-only file system over lister and fetcher.
func NewFS(lister Lister, fetcher Fetcher) *FTPFS {
	return &FTPFS{
		lister:  lister,
		fetcher: fetcher,
		now:     time.Now,
	}
}

func normalizePath(name string) string {
	name = path.Clean("/" + name)
	if name == "/" {
		return ""
	}
	return name
}

// Mkdir is not supported.
func (fsys *FTPFS) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	return os.ErrPermission
}

// RemoveAll is not supported.
func (fsys *FTPFS) RemoveAll(ctx context.Context, name string) error {
	return os.ErrPermission
}

// Rename is not supported.
func (fsys *FTPFS) Rename(ctx context.Context, oldName, newName string) error {
	return os.ErrPermission
}

// OpenFile opens name for reading.
func (fsys *FTPFS) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, os.ErrPermission
	}

	name = normalizePath(name)
	info, err := fsys.stat(ctx, name)
	if err != nil {
		return nil, err
	}
	return &ftpFile{fs: fsys, ctx: ctx, name: name, info: info}, nil
}

// Stat returns file info for a path.
func (fsys *FTPFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	return fsys.stat(ctx, normalizePath(name))
}

func (fsys *FTPFS) stat(ctx context.Context, name string) (*fileInfo, error) {
	if name == "" {
		return &fileInfo{name: "/", isDir: true}, nil
	}

	dir, base := path.Split(name)
	entries, err := fsys.readDir(ctx, normalizePath(dir))
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Name == base {
			return fsys.info(e), nil
		}
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (fsys *FTPFS) readDir(ctx context.Context, dir string) ([]listing.Entry, error) {
	memo, _ := ctx.Value(requestDirsKey{}).(*requestDirs)
	if memo != nil {
		memo.mu.Lock()
		entries, ok := memo.dirs[dir]
		memo.mu.Unlock()
		if ok {
			return entries, nil
		}
	}

	entries, err := fsys.lister.List(ctx, dir)
	if err != nil {
		logging.WithContext(ctx).Debug("webdav list failed",
			zap.String("path", dir),
			zap.Error(err))
		return nil, &fs.PathError{Op: "list", Path: dir, Err: fs.ErrNotExist}
	}

	if memo != nil {
		memo.mu.Lock()
		memo.dirs[dir] = entries
		memo.mu.Unlock()
	}
	return entries, nil
}

func (fsys *FTPFS) info(e listing.Entry) *fileInfo {
	return &fileInfo{
		name:    e.Name,
		size:    e.Size,
		isDir:   e.IsDir(),
		modTime: e.ModTime(fsys.now()),
	}
}

// ftpFile implements webdav.File. File content is fetched on first read.
type ftpFile struct {
	fs   *FTPFS
	ctx  context.Context
	name string
	info *fileInfo

	data   *bytes.Reader
	offset int64

	children []os.FileInfo
	listed   bool
}

var _ webdav.File = (*ftpFile)(nil)

func (f *ftpFile) Close() error { return nil }

func (f *ftpFile) Stat() (os.FileInfo, error) { return f.info, nil }

func (f *ftpFile) Write(p []byte) (int, error) { return 0, os.ErrPermission }

func (f *ftpFile) Read(p []byte) (int, error) {
	if f.info.isDir {
		return 0, fmt.Errorf("%s: is a directory", f.name)
	}
	if err := f.load(); err != nil {
		return 0, err
	}
	if _, err := f.data.Seek(f.offset, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := f.data.Read(p)
	f.offset += int64(n)
	return n, err
}

// load fetches the content once. The listed size is replaced by the real
// one: symlinks report the length of their target path.
func (f *ftpFile) load() error {
	if f.data != nil {
		return nil
	}
	file, err := f.fs.fetcher.Fetch(f.ctx, f.name)
	if err != nil {
		return err
	}
	f.data = bytes.NewReader(file.Data)
	f.info.size = int64(len(file.Data))
	return nil
}

func (f *ftpFile) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekEnd && !f.info.isDir {
		if err := f.load(); err != nil {
			return 0, err
		}
	}
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.offset + offset
	case io.SeekEnd:
		next = f.info.size + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	f.offset = next
	return next, nil
}

// Readdir follows the os.File contract: count <= 0 returns everything,
// otherwise at most count entries and io.EOF once exhausted.
func (f *ftpFile) Readdir(count int) ([]os.FileInfo, error) {
	if !f.info.isDir {
		return nil, fmt.Errorf("%s: not a directory", f.name)
	}
	if !f.listed {
		entries, err := f.fs.readDir(f.ctx, f.name)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			f.children = append(f.children, f.fs.info(e))
		}
		f.listed = true
	}

	if count <= 0 {
		out := f.children
		f.children = nil
		return out, nil
	}
	if len(f.children) == 0 {
		return nil, io.EOF
	}
	n := min(count, len(f.children))
	out := f.children[:n]
	f.children = f.children[n:]
	return out, nil
}

// fileInfo implements os.FileInfo and webdav.ContentTyper.
type fileInfo struct {
	name    string
	size    int64
	isDir   bool
	modTime time.Time
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) ModTime() time.Time { return fi.modTime }
func (fi *fileInfo) IsDir() bool        { return fi.isDir }
func (fi *fileInfo) Sys() any           { return nil }

func (fi *fileInfo) Mode() fs.FileMode {
	if fi.isDir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

// ContentType avoids opening (and downloading) the file to sniff it.
func (fi *fileInfo) ContentType(ctx context.Context) (string, error) {
	if ct := mime.TypeByExtension(path.Ext(fi.name)); ct != "" {
		return ct, nil
	}
	return "application/octet-stream", nil
}
