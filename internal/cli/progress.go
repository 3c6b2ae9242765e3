package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/contextharness/ctx/internal/ingest"
)

// humanProgress renders a live progress bar per source via
// schollz/progressbar/v3: a discovery line followed by a bar that advances
// per ingested item.
type humanProgress struct {
	out  io.Writer
	bars map[string]*progressbar.ProgressBar
}

func newHumanProgress(out io.Writer) *humanProgress {
	return &humanProgress{out: out, bars: map[string]*progressbar.ProgressBar{}}
}

func (p *humanProgress) OnDiscoveryStart(source string) {
	fmt.Fprintf(p.out, "discovering %s...\n", source)
}

func (p *humanProgress) OnItem(source string, n, total int) {
	bar, ok := p.bars[source]
	if !ok {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(fmt.Sprintf("ingesting %s", source)),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionClearOnFinish(),
		)
		p.bars[source] = bar
	}
	bar.Set(n)
}

func (p *humanProgress) OnComplete(source string, result *ingest.Result) {
	if bar, ok := p.bars[source]; ok {
		bar.Finish()
	}
	fmt.Fprintf(p.out, "%s: fetched=%d upserted=%d chunks=%d pruned=%d embedded=%d embed_failed=%d\n",
		source, result.Fetched, result.Upserted, result.ChunksWritten, result.Skipped,
		result.EmbedAttempted-result.EmbedFailed, result.EmbedFailed)
}

func (p *humanProgress) OnError(source string, err error) {
	fmt.Fprintf(p.out, "%s: error: %v\n", source, err)
}

// jsonProgress emits one JSON object per line, "one JSON object
// per line" progress mode.
type jsonProgress struct {
	out io.Writer
}

func newJSONProgress(out io.Writer) *jsonProgress {
	return &jsonProgress{out: out}
}

func (p *jsonProgress) emit(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.out.Write(append(b, '\n'))
}

func (p *jsonProgress) OnDiscoveryStart(source string) {
	p.emit(map[string]any{"event": "discovering", "source": source, "ts": time.Now().UTC().Format(time.RFC3339)})
}

func (p *jsonProgress) OnItem(source string, n, total int) {
	p.emit(map[string]any{"event": "ingesting", "source": source, "n": n, "total": total})
}

func (p *jsonProgress) OnComplete(source string, result *ingest.Result) {
	p.emit(map[string]any{"event": "complete", "source": source, "result": result})
}

func (p *jsonProgress) OnError(source string, err error) {
	p.emit(map[string]any{"event": "error", "source": source, "message": err.Error()})
}

// newProgress builds the ingest.Progress implementation named by the
// --progress flag (human|json|off), .
func newProgress(mode string, out io.Writer) ingest.Progress {
	switch mode {
	case "json":
		return newJSONProgress(out)
	case "off":
		return ingest.NoOpProgress{}
	default:
		return newHumanProgress(out)
	}
}
