package knowledge

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/mholt/archives"

	"github.com/ansible/ansible-risk-insight-sub000/internal/ctxlog"
	"github.com/ansible/ansible-risk-insight-sub000/internal/definitions"
)

// FindingsFileName is the name of a findings document inside an archive
const FindingsFileName = "findings.yml"

// Import registers every findings document of an archive into store. Files
// named findings.yml, findings.yaml or findings.json are read; a bare
// findings document that is only compressed is read as well. It returns the
// number of registered findings.
func Import(ctx context.Context, store Store, name string, r io.Reader) (int, error) {
	logger := ctxlog.FromContext(ctx)

	format, stream, err := archives.Identify(ctx, name, r)
	if err != nil {
		return 0, fmt.Errorf("failed to identify archive format: %w", err)
	}

	extractor, ok := format.(archives.Extractor)
	if !ok {
		decompressor, ok := format.(archives.Decompressor)
		if !ok {
			return 0, fmt.Errorf("format does not support extraction: %s", name)
		}
		rc, err := decompressor.OpenReader(stream)
		if err != nil {
			return 0, fmt.Errorf("failed to open decompressor: %w", err)
		}
		defer func() { _ = rc.Close() }()
		if err := register(store, rc); err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return 1, nil
	}

	count := 0
	handler := func(ctx context.Context, f archives.FileInfo) error {
		if f.IsDir() || !isFindingsFile(f.NameInArchive) {
			return nil
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open file in archive: %w", err)
		}
		defer func() { _ = rc.Close() }()

		if err := register(store, rc); err != nil {
			return fmt.Errorf("%s: %w", f.NameInArchive, err)
		}
		logger.Debug("imported findings", "archive", name, "file", f.NameInArchive)
		count++
		return nil
	}

	if err := extractor.Extract(ctx, stream, handler); err != nil {
		return count, fmt.Errorf("extraction failed: %w", err)
	}
	return count, nil
}

func isFindingsFile(name string) bool {
	base := path.Base(name)
	ext := path.Ext(base)
	return base[:len(base)-len(ext)] == "findings" && definitions.IsBundleFile(base)
}

func register(store Store, r io.Reader) error {
	f, err := DecodeFindings(r)
	if err != nil {
		return err
	}
	return store.Register(f)
}
