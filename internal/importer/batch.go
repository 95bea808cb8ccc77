package importer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/mileagekit/mileage/internal/mileagelog"
)

// maxParallelParses bounds how many files are read at once.
const maxParallelParses = 4

// Parsed is the result of reading one file.
type Parsed struct {
	File   FileInfo
	Format string
	Drafts []mileagelog.Draft
}

// ParseFiles reads files concurrently. Results keep the order of files. The
// first failure cancels the remaining reads and is returned.
func (r *Registry) ParseFiles(ctx context.Context, files []FileInfo, format string) ([]Parsed, error) {
	out := make([]Parsed, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelParses)
	for i, f := range files {
		i, f := i, f
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			drafts, p, err := r.ParseFile(f.Path, format)
			if err != nil {
				return err
			}
			out[i] = Parsed{File: f, Format: p.Format(), Drafts: drafts}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
