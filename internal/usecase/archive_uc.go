// File: internal/usecase/archive_uc.go
package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"svmedia/internal/config"
	"svmedia/internal/domain"
	"svmedia/internal/domain/model"
	"svmedia/internal/domain/ports/adapter"
	"svmedia/internal/infra/logging"
	"svmedia/internal/infra/metrics"
)

const sharedDir = "Shared Photos"

func squadDir(n int) string { return fmt.Sprintf("Squad %d", n) }

// Compile-time check
var _ ArchiveUseCase = (*archiveUC)(nil)

// ArchiveUseCase delivers the photos a redeemed scope unlocks. Mode tells the
// caller which of Assemble, Stream or Links to use.
type ArchiveUseCase interface {
	Mode() string
	Assemble(ctx context.Context, scope model.Scope) (*model.Archive, error)
	// Stream writes the archive as objects arrive. open is called once, right
	// before the first byte, so failures before that point leave the caller
	// free to report an error instead.
	Stream(ctx context.Context, scope model.Scope, open func(filename string) io.Writer) error
	Links(ctx context.Context, scope model.Scope) (*model.DownloadLinks, error)
	ListShared(ctx context.Context, shift int) ([]model.RemoteObject, error)
}

type archiveUC struct {
	store        adapter.ObjectStore
	mode         string
	concurrency  int
	fetchTimeout time.Duration
	linksPrefix  string
	linkTTL      time.Duration
	now          func() time.Time
	log          *zerolog.Logger
}

func NewArchiveUseCase(store adapter.ObjectStore, cfg config.ArchiveConfig, logger *zerolog.Logger) *archiveUC {
	uc := &archiveUC{
		store:        store,
		mode:         cfg.Mode,
		concurrency:  cfg.FetchConcurrency,
		fetchTimeout: cfg.FetchTimeout,
		linksPrefix:  cfg.LinksPrefix,
		linkTTL:      cfg.LinkTTL,
		now:          time.Now,
		log:          logger,
	}
	if uc.mode == "" {
		uc.mode = config.ArchiveModeStreamed
	}
	if uc.concurrency <= 0 {
		uc.concurrency = 8
	}
	if uc.fetchTimeout <= 0 {
		uc.fetchTimeout = 30 * time.Second
	}
	if uc.linksPrefix == "" {
		uc.linksPrefix = "archives"
	}
	if uc.linkTTL <= 0 {
		uc.linkTTL = 24 * time.Hour
	}
	return uc
}

func (u *archiveUC) Mode() string { return u.mode }

// entry is one file of the archive: where it comes from and its name inside.
type entry struct {
	obj  model.RemoteObject
	name string
}

// plan lists both prefixes of the scope: squad objects first, then shared ones,
// each in store listing order. Entries are named after the last key segment, so
// objects from nested sub-prefixes may share a name; those are kept and logged.
func (u *archiveUC) plan(ctx context.Context, log *zerolog.Logger, scope model.Scope) ([]entry, int64, error) {
	squad, err := u.listFiles(ctx, model.SquadPrefix(scope))
	if err != nil {
		return nil, 0, err
	}
	shared, err := u.listFiles(ctx, model.SharedPrefix(scope.Shift))
	if err != nil {
		return nil, 0, err
	}

	out := make([]entry, 0, len(squad)+len(shared))
	seen := make(map[string]string, len(squad)+len(shared))
	var size int64
	add := func(dir string, o model.RemoteObject) {
		name := dir + "/" + o.BaseName()
		if prev, ok := seen[name]; ok {
			log.Warn().Str("entry", name).Str("key", o.Key).Str("first_key", prev).Msg("duplicate archive entry name")
		} else {
			seen[name] = o.Key
		}
		out = append(out, entry{obj: o, name: name})
		size += o.Size
	}
	for _, o := range squad {
		add(squadDir(scope.Squad), o)
	}
	for _, o := range shared {
		add(sharedDir, o)
	}
	return out, size, nil
}

func (u *archiveUC) listFiles(ctx context.Context, prefix string) ([]model.RemoteObject, error) {
	objs, err := u.store.List(ctx, prefix)
	if err != nil {
		return nil, &domain.AssemblyError{Key: prefix, Err: err}
	}
	out := objs[:0:0]
	for _, o := range objs {
		if o.IsDirMarker() || o.Key == prefix {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// write fetches entries concurrently and writes them to w strictly in plan
// order. At most u.concurrency objects are in flight or waiting to be written.
// The zip is only finalized when every entry made it in.
func (u *archiveUC) write(ctx context.Context, entries []entry, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	results := make([]chan []byte, len(entries))
	for i := range results {
		results[i] = make(chan []byte, 1)
	}
	slots := make(chan struct{}, u.concurrency)

	g.Go(func() error {
		for i, e := range entries {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			g.Go(func() error {
				b, err := u.fetch(gctx, e.obj.Key)
				if err != nil {
					return &domain.AssemblyError{Key: e.obj.Key, Err: err}
				}
				results[i] <- b
				return nil
			})
		}
		return nil
	})

	zw := zip.NewWriter(w)
	werr := func() error {
		for i, e := range entries {
			var b []byte
			select {
			case b = <-results[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			f, err := zw.CreateHeader(&zip.FileHeader{
				Name:     e.name,
				Method:   zip.Deflate,
				Modified: e.obj.LastModified,
			})
			if err != nil {
				return err
			}
			if _, err := f.Write(b); err != nil {
				return err
			}
			<-slots
		}
		return zw.Close()
	}()
	if werr != nil {
		cancel()
	}
	gerr := g.Wait()

	if werr != nil && !errors.Is(werr, context.Canceled) && !errors.Is(werr, context.DeadlineExceeded) {
		return fmt.Errorf("write archive: %w", werr)
	}
	if gerr != nil {
		return gerr
	}
	return werr
}

func (u *archiveUC) fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, u.fetchTimeout)
	defer cancel()
	rc, err := u.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Assemble builds the whole archive in memory. On any fetch failure no archive
// is returned.
func (u *archiveUC) Assemble(ctx context.Context, scope model.Scope) (*model.Archive, error) {
	defer logging.TraceDuration(u.log, "ArchiveUC.Assemble")()
	log := logging.With(ctx, u.log)

	entries, size, err := u.plan(ctx, log, scope)
	if err != nil {
		u.fail(log, config.ArchiveModeBuffered, scope, err)
		return nil, err
	}
	var buf bytes.Buffer
	if err := u.write(ctx, entries, &buf); err != nil {
		u.fail(log, config.ArchiveModeBuffered, scope, err)
		return nil, err
	}
	u.done(log, config.ArchiveModeBuffered, scope, len(entries), size)
	return &model.Archive{
		Filename: model.ArchiveFilename(scope),
		Body:     buf.Bytes(),
		Entries:  len(entries),
	}, nil
}

func (u *archiveUC) Stream(ctx context.Context, scope model.Scope, open func(filename string) io.Writer) error {
	defer logging.TraceDuration(u.log, "ArchiveUC.Stream")()
	log := logging.With(ctx, u.log)

	entries, size, err := u.plan(ctx, log, scope)
	if err != nil {
		u.fail(log, config.ArchiveModeStreamed, scope, err)
		return err
	}
	lw := &lazyWriter{open: func() io.Writer { return open(model.ArchiveFilename(scope)) }}
	if err := u.write(ctx, entries, lw); err != nil {
		u.fail(log, config.ArchiveModeStreamed, scope, err)
		return err
	}
	u.done(log, config.ArchiveModeStreamed, scope, len(entries), size)
	return nil
}

// Links presigns the two archives published out of band for the scope.
func (u *archiveUC) Links(ctx context.Context, scope model.Scope) (*model.DownloadLinks, error) {
	defer logging.TraceDuration(u.log, "ArchiveUC.Links")()
	log := logging.With(ctx, u.log)

	squadKey := fmt.Sprintf("%s/%d_%d.zip", u.linksPrefix, scope.Shift, scope.Squad)
	totalKey := fmt.Sprintf("%s/%d_total.zip", u.linksPrefix, scope.Shift)

	urls := make([]string, 2)
	for i, key := range []string{squadKey, totalKey} {
		ok, err := u.store.Exists(ctx, key)
		if err != nil {
			u.fail(log, config.ArchiveModePresigned, scope, err)
			return nil, err
		}
		if !ok {
			metrics.IncArchiveBuild(config.ArchiveModePresigned, "missing")
			log.Warn().Str("key", key).Msg("pre-built archive missing")
			return nil, domain.ErrArchiveNotFound
		}
		url, err := u.store.PresignGet(ctx, key, u.linkTTL)
		if err != nil {
			u.fail(log, config.ArchiveModePresigned, scope, err)
			return nil, err
		}
		urls[i] = url
	}

	metrics.IncArchiveBuild(config.ArchiveModePresigned, "ok")
	return &model.DownloadLinks{
		SquadArchive: urls[0],
		TotalArchive: urls[1],
		ExpiresAt:    u.now().Add(u.linkTTL).UTC(),
	}, nil
}

// ListShared lists the shift-wide pool for admin inspection.
func (u *archiveUC) ListShared(ctx context.Context, shift int) ([]model.RemoteObject, error) {
	defer logging.TraceDuration(u.log, "ArchiveUC.ListShared")()
	if shift <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	prefix := model.SharedPrefix(shift)
	objs, err := u.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := objs[:0:0]
	for _, o := range objs {
		if !o.IsDirMarker() && o.Key != prefix {
			out = append(out, o)
		}
	}
	return out, nil
}

func (u *archiveUC) fail(log *zerolog.Logger, mode string, scope model.Scope, err error) {
	metrics.IncArchiveBuild(mode, "failed")
	ev := log.Error().Err(err).Str("mode", mode).Int("shift", scope.Shift).Int("squad", scope.Squad)
	var ae *domain.AssemblyError
	if errors.As(err, &ae) {
		ev = ev.Str("key", ae.Key)
	}
	ev.Msg("archive delivery failed")
}

func (u *archiveUC) done(log *zerolog.Logger, mode string, scope model.Scope, entries int, size int64) {
	metrics.IncArchiveBuild(mode, "ok")
	metrics.ObserveArchiveBytes(size)
	log.Info().
		Str("mode", mode).
		Int("shift", scope.Shift).
		Int("squad", scope.Squad).
		Int("entries", entries).
		Int64("source_bytes", size).
		Msg("archive delivered")
}

// lazyWriter defers opening the destination until there is something to write.
type lazyWriter struct {
	open func() io.Writer
	w    io.Writer
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if l.w == nil {
		l.w = l.open()
	}
	return l.w.Write(p)
}
