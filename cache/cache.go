/*
Package cache stores platform re-encodings of source images so repeated
exports skip recompression.

Each entry is a pair of sidecar files in the cache directory: <key>.tex holds
the encoded bytes and <key>.txt holds three lines, the source modification
time in unix seconds, the lowercase hex MD5 of the source and the canonical
source path. An entry is trusted when the stored modification time equals the
current one, or else when the stored hash equals the current content hash.
*/
package cache

import (
	"bufio"
	"crypto/md5" // #nosec G501 -- cache keys and fingerprints, not security
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "imgexp-"

var (
	// ErrCacheIO indicates a sidecar file could not be read or written.
	ErrCacheIO = errors.New("cache sidecar I/O failed")
	// ErrCorruptRecord indicates a malformed <key>.txt sidecar.
	ErrCorruptRecord = errors.New("corrupt cache record")
	// ErrSource indicates the source file could not be inspected.
	ErrSource = errors.New("cache source inspection failed")
	// ErrProduce indicates the producer did not leave a readable artifact.
	ErrProduce = errors.New("cache producer failed")
)

// Key identifies one (source, options, platform) combination.
type Key string

// NewKey derives the key from the canonical source path and export options.
// compression is the platform codec id, or 255 for lossy disk exports.
func NewKey(path string, flags uint32, format, compression, shrink uint8) Key {
	h := md5.New() // #nosec G401 -- not security
	_, _ = io.WriteString(h, path)

	var f4 [4]byte
	binary.LittleEndian.PutUint32(f4[:], flags)
	_, _ = h.Write(f4[:])
	_, _ = h.Write([]byte{format, compression, shrink})

	return Key(KeyPrefix + hex.EncodeToString(h.Sum(nil)))
}

// Record is the parsed content of a <key>.txt sidecar.
type Record struct {
	ModTime int64
	Hash    string
	Path    string
}

// ParseRecord reads the three-line sidecar format.
func ParseRecord(r io.Reader) (Record, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() && len(lines) < 3 {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	if len(lines) < 2 {
		return Record{}, fmt.Errorf("%w: %d lines", ErrCorruptRecord, len(lines))
	}

	mtime, err := strconv.ParseInt(lines[0], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("%w: modification time %q", ErrCorruptRecord, lines[0])
	}
	rec := Record{ModTime: mtime, Hash: lines[1]}
	if len(lines) > 2 {
		rec.Path = lines[2]
	}

	return rec, nil
}

// WriteTo writes the record in line order.
func (r Record) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "%d\n%s\n%s\n", r.ModTime, r.Hash, r.Path)

	return int64(n), err
}

// HashFile returns the lowercase hex MD5 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s for hashing: %v", ErrSource, path, err)
	}
	defer func() { _ = f.Close() }()

	h := md5.New() // #nosec G401 -- not security
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: hashing %s: %v", ErrSource, path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func modTime(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSource, err)
	}

	return fi.ModTime().Unix(), nil
}

// Store is a directory of sidecar pairs. Check and write sequences are
// serialized per key.
type Store struct {
	dir    string
	logger *log.Logger

	mu    sync.Mutex
	locks map[Key]*keyLock
}

// keyLock is dropped from Store.locks once refs reaches zero.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// New returns a store rooted at dir, creating it when missing.
// A nil logger discards output.
func New(dir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Store{dir: dir, logger: logger, locks: make(map[Key]*keyLock)}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// ArtifactPath returns the path of <key>.tex.
func (s *Store) ArtifactPath(key Key) string {
	return filepath.Join(s.dir, string(key)+".tex")
}

// RecordPath returns the path of <key>.txt.
func (s *Store) RecordPath(key Key) string {
	return filepath.Join(s.dir, string(key)+".txt")
}

func (s *Store) lock(key Key) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

// fingerprint caches the source hash across validate and record writes.
type fingerprint struct {
	source  string
	modTime int64
	hash    string
}

func (f *fingerprint) md5() (string, error) {
	if f.hash == "" {
		h, err := HashFile(f.source)
		if err != nil {
			return "", err
		}
		f.hash = h
	}

	return f.hash, nil
}

// validate reports whether the stored record still describes source.
func (s *Store) validate(key Key, fp *fingerprint) (bool, error) {
	f, err := os.Open(s.RecordPath(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cache record unreadable", "key", key, "err", err)
		}
		return false, nil
	}
	defer func() { _ = f.Close() }()

	rec, err := ParseRecord(f)
	if err != nil {
		s.logger.Warn("cache record ignored", "key", key, "err", err)
		return false, nil
	}
	if rec.ModTime == fp.modTime {
		return true, nil
	}

	hash, err := fp.md5()
	if err != nil {
		return false, err
	}

	return rec.Hash == hash, nil
}

// Lookup returns the cached bytes for key when the entry is still valid
// for source. Sidecar failures are reported as a miss.
func (s *Store) Lookup(key Key, source string) ([]byte, bool, error) {
	unlock := s.lock(key)
	defer unlock()

	mtime, err := modTime(source)
	if err != nil {
		return nil, false, err
	}

	return s.lookup(key, &fingerprint{source: source, modTime: mtime})
}

func (s *Store) lookup(key Key, fp *fingerprint) ([]byte, bool, error) {
	ok, err := s.validate(key, fp)
	if err != nil || !ok {
		return nil, false, err
	}

	data, err := os.ReadFile(s.ArtifactPath(key))
	if err != nil {
		s.logger.Warn("cached artifact unreadable", "key", key, "err", err)
		return nil, false, nil
	}

	return data, true, nil
}

// ProduceFunc writes a fresh artifact to path.
type ProduceFunc func(path string) error

// Do returns the cached artifact for key, running produce on a miss and
// recording the source fingerprint afterwards. hit reports whether produce
// was skipped.
func (s *Store) Do(key Key, source string, produce ProduceFunc) (data []byte, hit bool, err error) {
	unlock := s.lock(key)
	defer unlock()

	mtime, err := modTime(source)
	if err != nil {
		return nil, false, err
	}
	fp := &fingerprint{source: source, modTime: mtime}

	data, hit, err = s.lookup(key, fp)
	if err != nil {
		return nil, false, err
	}
	if hit {
		s.logger.Info("export cache hit", "key", key, "source", source)
		return data, true, nil
	}

	s.logger.Info("export cache miss", "key", key, "source", source)
	texPath := s.ArtifactPath(key)
	if err := produce(texPath); err != nil {
		return nil, false, err
	}

	data, err = os.ReadFile(texPath)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrProduce, texPath, err)
	}

	if err := s.writeRecord(key, fp); err != nil {
		s.logger.Warn("cache record not written", "key", key, "err", err)
	}

	return data, false, nil
}

func (s *Store) writeRecord(key Key, fp *fingerprint) error {
	hash, err := fp.md5()
	if err != nil {
		return err
	}

	// Written aside and renamed so other processes never read a partial record.
	path := s.RecordPath(key)
	f, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	rec := Record{ModTime: fp.modTime, Hash: hash, Path: fp.source}
	if _, err := rec.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheIO, err)
	}

	return nil
}

// Invalidate removes both sidecars of key.
func (s *Store) Invalidate(key Key) error {
	unlock := s.lock(key)
	defer unlock()

	var errs []error
	for _, p := range []string{s.RecordPath(key), s.ArtifactPath(key)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("%w: %v", ErrCacheIO, err))
		}
	}

	return errors.Join(errs...)
}
