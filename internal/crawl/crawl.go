// Package crawl drives the whole run: one browser session per dataset,
// verification up front, then a fetch-and-paginate loop until the
// catalog runs out of pages.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Linghan9/epsteinFilePull/internal/browser"
	"github.com/Linghan9/epsteinFilePull/internal/config"
	"github.com/Linghan9/epsteinFilePull/internal/sink"
	"github.com/Linghan9/epsteinFilePull/internal/types"
)

// Verifier confirms the session is past the site's gates before any
// catalog work starts.
type Verifier interface {
	Ensure(page browser.Page, basename string) bool
}

// FileFetcher downloads one file through the session.
type FileFetcher interface {
	Fetch(ctx context.Context, getter browser.Getter, page browser.Page, url string) (*types.FetchResult, error)
}

// PageWalker moves the live page to the next catalog page.
type PageWalker interface {
	Advance(ctx context.Context, page browser.Page, datasetURL, basename string, pageNumber int) bool
}

// Session is a live browser plus its request client.
type Session interface {
	browser.Getter
	Page() browser.Page
	Recycle(ctx context.Context) error
	Close() error
}

// SessionFactory launches a fresh session. Each dataset gets its own.
type SessionFactory func() (Session, error)

// Crawler walks every configured dataset, saving files into the sink.
type Crawler struct {
	cfg      *config.CrawlConfig
	sessions SessionFactory
	verifier Verifier
	fetcher  FileFetcher
	walker   PageWalker
	recycler *RecycleScheduler
	sink     *sink.Sink
	logger   *slog.Logger
}

// New creates a Crawler.
func New(cfg *config.CrawlConfig, sessions SessionFactory, verifier Verifier, fetcher FileFetcher, walker PageWalker, recycler *RecycleScheduler, out *sink.Sink, logger *slog.Logger) *Crawler {
	return &Crawler{
		cfg:      cfg,
		sessions: sessions,
		verifier: verifier,
		fetcher:  fetcher,
		walker:   walker,
		recycler: recycler,
		sink:     out,
		logger:   logger.With("component", "crawler"),
	}
}

// Run crawls every configured dataset in order. A dataset that fails
// verification or loses its session is logged and skipped; the run
// carries on with the next one. Only context cancellation and a failed
// session launch end the run early.
func (c *Crawler) Run(ctx context.Context) error {
	for _, dataset := range c.cfg.Datasets {
		if err := ctx.Err(); err != nil {
			return err
		}

		// A browser that cannot launch at all is fatal to the run, not
		// just to one dataset.
		session, err := c.sessions()
		if err != nil {
			return fmt.Errorf("launching session: %w", err)
		}

		c.logger.Info("crawling dataset", "dataset", dataset)
		if err := c.crawlDataset(ctx, session, dataset); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Error("dataset crawl failed", "dataset", dataset, "error", err)
			continue
		}
		c.logger.Info("dataset complete", "dataset", dataset)
	}
	return nil
}

func (c *Crawler) crawlDataset(ctx context.Context, session Session, dataset string) error {
	defer session.Close()

	datasetURL := joinDatasetURL(c.cfg.BaseURL, dataset)
	page := session.Page()

	resp, err := page.Navigate(ctx, datasetURL)
	if err != nil {
		return fmt.Errorf("opening %s: %w", datasetURL, err)
	}
	c.sink.WriteSnapshot(dataset, "init", page.HTML())
	defer func() { c.sink.WriteSnapshot(dataset, "final", page.HTML()) }()
	if resp != nil && resp.IsBlocked() {
		c.logger.Warn("dataset root returned block status", "dataset", dataset, "status", resp.Status)
	}

	if !c.verifier.Ensure(page, dataset) {
		return fmt.Errorf("dataset %s: %w", dataset, types.ErrVerificationFailed)
	}

	pageNumber := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Recycling happens only here, between page iterations, so an
		// in-flight fetch never loses its session out from under it.
		if c.recycler.DueForRecycle() {
			c.logger.Info("recycling browser session", "dataset", dataset, "page", pageNumber)
			if err := session.Recycle(ctx); err != nil {
				return fmt.Errorf("recycling session: %w", err)
			}
			page = session.Page()
			if !c.verifier.Ensure(page, dataset) {
				return fmt.Errorf("dataset %s after recycle: %w", dataset, types.ErrVerificationFailed)
			}
			c.recycler.MarkRecycled()
		}

		pageNumber++
		if c.cfg.MaxPages > 0 && pageNumber > c.cfg.MaxPages {
			c.logger.Info("page limit reached", "dataset", dataset, "max_pages", c.cfg.MaxPages)
			return nil
		}

		links := itemLinks(page.HTML(), page.URL())
		c.logger.Info("catalog page scanned", "dataset", dataset, "page", pageNumber, "items", len(links))
		if len(links) == 0 {
			// An empty catalog page means the dataset is exhausted.
			// This also bounds URL-increment pagination, which has no
			// explicit last-page signal.
			return nil
		}
		if c.cfg.PerPageLimit > 0 && len(links) > c.cfg.PerPageLimit {
			links = links[:c.cfg.PerPageLimit]
		}

		for _, link := range links {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.fetchItem(ctx, session, page, link)
		}

		if !c.walker.Advance(ctx, page, datasetURL, dataset, pageNumber) {
			return nil
		}
	}
}

// fetchItem downloads one item, falling back to the embedded document
// URL when the link points at a viewer page instead of the file itself.
// Failures go to the dead letter log and never stop the crawl.
func (c *Crawler) fetchItem(ctx context.Context, session Session, page browser.Page, link string) {
	filename := types.FilenameFromURL(link)
	if c.sink.AlreadySaved(filename) {
		c.logger.Debug("already saved, skipping", "filename", filename)
		return
	}

	result, err := c.fetcher.Fetch(ctx, session, page, link)
	if errors.Is(err, types.ErrUnexpectedContentType) {
		if docURL, ok := c.embeddedDoc(ctx, session, link); ok {
			c.logger.Info("retrying via embedded document", "url", link, "document", docURL)
			result, err = c.fetcher.Fetch(ctx, session, page, docURL)
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Warn("fetch failed", "url", link, "error", err)
		c.sink.AppendDeadLetter(link)
		return
	}

	if err := c.sink.SaveFile(result.Filename, result.Content); err != nil {
		c.logger.Error("saving file failed", "filename", result.Filename, "error", err)
	}
}

// embeddedDoc fetches the viewer page over the session's request client
// and looks for a document embedded in it.
func (c *Crawler) embeddedDoc(ctx context.Context, session Session, link string) (string, bool) {
	resp, err := session.Get(ctx, link)
	if err != nil || !resp.IsSuccess() {
		return "", false
	}
	return embeddedDocumentURL(string(resp.Body), link)
}
