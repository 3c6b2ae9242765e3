// Package s3 implements the s3 connector : it lists objects under a
// bucket/prefix via aws-sdk-go-v2, filters them by include glob, and
// streams each matching object's body as a model.SourceItem. Binary
// formats are routed through internal/connector/extract; when extraction
// fails the object's raw bytes are used as the body.
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gobwas/glob"

	"github.com/contextharness/ctx/internal/connector/extract"
	"github.com/contextharness/ctx/internal/model"
)

// Config is one s3 connector instance's configuration, .
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	IncludeGlobs []string
	EndpointURL  string
}

// Connector lists and fetches objects from one configured bucket/prefix.
type Connector struct {
	cfg             Config
	client          *s3.Client
	includePatterns []glob.Glob
}

// New loads AWS credentials/config (environment, shared config, or IMDS,
// per the SDK's default chain) and compiles the include globs.
func New(ctx context.Context, cfg Config) (*Connector, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 connector: bucket is required")
	}

	optFns := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = &cfg.EndpointURL
		}
	})

	c := &Connector{cfg: cfg, client: client}
	for _, pattern := range cfg.IncludeGlobs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile include glob %q: %w", pattern, err)
		}
		c.includePatterns = append(c.includePatterns, g)
	}
	return c, nil
}

// Scan pages through the bucket/prefix listing and emits one SourceItem
// per matched object. When since is non-nil, objects whose listing-level
// LastModified is not after since.LastSyncedAt are skipped before the
// (comparatively expensive) GetObject fetch, narrowing the sync to
// changed keys only.
func (c *Connector) Scan(ctx context.Context, since *model.Checkpoint) (<-chan model.SourceItem, <-chan error) {
	items := make(chan model.SourceItem)
	errCh := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errCh)

		paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
			Bucket: &c.cfg.Bucket,
			Prefix: &c.cfg.Prefix,
		})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				errCh <- fmt.Errorf("list objects: %w", err)
				return
			}

			for _, obj := range page.Contents {
				key := *obj.Key
				if len(c.includePatterns) > 0 && !c.matchesAny(key) {
					continue
				}
				if since != nil && obj.LastModified != nil && !obj.LastModified.After(since.LastSyncedAt) {
					continue
				}

				item, err := c.fetchItem(ctx, key)
				if err != nil {
					errCh <- err
					return
				}

				select {
				case items <- item:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
	}()

	return items, errCh
}

func (c *Connector) fetchItem(ctx context.Context, key string) (model.SourceItem, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &c.cfg.Bucket,
		Key:    &key,
	})
	if err != nil {
		return model.SourceItem{}, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return model.SourceItem{}, fmt.Errorf("read object %s: %w", key, err)
	}

	ext := strings.TrimPrefix(path.Ext(key), ".")
	body := string(raw)
	if kind := extract.KindForExtension(ext); kind != "" {
		if extracted, err := extract.Text(kind, raw, ""); err == nil {
			body = extracted
		}
	}

	item := model.SourceItem{
		SourceID:    key,
		Title:       path.Base(key),
		Body:        body,
		SourceURL:   fmt.Sprintf("s3://%s/%s", c.cfg.Bucket, key),
		ContentType: derefStr(out.ContentType),
		Metadata: map[string]string{
			"bucket": c.cfg.Bucket,
			"key":    key,
		},
	}
	if out.LastModified != nil {
		t := *out.LastModified
		item.UpdatedAt = &t
	}
	return item, nil
}

func (c *Connector) matchesAny(key string) bool {
	for _, p := range c.includePatterns {
		if p.Match(key) {
			return true
		}
	}
	return false
}

func derefStr(s *string) string {
	if s == nil {
		return "application/octet-stream"
	}
	return *s
}
