package renderer

import (
	"context"
	"fmt"
	"image"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/kenburns/internal/system"
	"github.com/ivlev/kenburns/internal/timeline"
)

// FrameStream renders a timeline to raw RGBA frames. Frames are rendered in
// parallel batches but always written in presentation order.
type FrameStream struct {
	Timeline *timeline.Timeline
	Width    int
	Height   int
	FPS      int
	Workers  int
	// Progress, if set, is called after each batch with frames written so far.
	Progress func(done, total int)
}

// FrameCount is the number of frames Stream will write.
func (s *FrameStream) FrameCount() int {
	return s.Timeline.FrameCount(s.FPS)
}

// Stream writes every frame to w and returns the number written.
func (s *FrameStream) Stream(ctx context.Context, w io.Writer) (int, error) {
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	rect := image.Rect(0, 0, s.Width, s.Height)
	total := s.FrameCount()
	batch := workers * 2

	frames := make([]*image.RGBA, batch)
	written := 0
	for start := 0; start < total; start += batch {
		n := batch
		if total-start < n {
			n = total - start
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := 0; i < n; i++ {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				dst := system.GetImage(rect)
				scratch := system.GetImage(rect)
				defer system.PutImage(scratch)

				T := timeline.FrameTime(start+i, s.FPS)
				if err := s.Timeline.RenderFrame(dst, scratch, T); err != nil {
					system.PutImage(dst)
					return fmt.Errorf("frame %d (%.3fs): %w", start+i, T, err)
				}
				frames[i] = dst
				return nil
			})
		}
		err := g.Wait()
		if err == nil {
			for i := 0; i < n; i++ {
				if _, werr := w.Write(frames[i].Pix); werr != nil {
					err = fmt.Errorf("write frame %d: %w", start+i, werr)
					break
				}
				written++
			}
		}
		for i := 0; i < n; i++ {
			if frames[i] != nil {
				system.PutImage(frames[i])
				frames[i] = nil
			}
		}
		if err != nil {
			return written, err
		}
		if s.Progress != nil {
			s.Progress(written, total)
		}
	}
	return written, nil
}
