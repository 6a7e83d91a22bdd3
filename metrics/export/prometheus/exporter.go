package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	novelAuth "github.com/MrEthical07/novelAuth"
	"github.com/MrEthical07/novelAuth/metrics/export/internaldefs"
)

const auditDroppedName = "novelauth_audit_dropped_total"

// Source is what the exporter reads on every scrape. *novelAuth.Engine
// satisfies it.
type Source interface {
	MetricsSnapshot() novelAuth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine metrics in the Prometheus text exposition format.
type Exporter struct {
	source Source
}

// New returns an Exporter reading from source.
func New(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render on every request.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current exposition. It is empty while metrics are
// disabled and nothing was dropped.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
	}
	writeCounter(&b, auditDroppedName, "Audit events dropped on a full dispatcher buffer.", dropped)

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteString("\n# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name string, value uint64) {
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	writeSample(b, name, value)
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, name+`_bucket{le="`+le+`"}`, cumulative[i])
	}
	writeSample(b, name+"_count", cumulative[len(cumulative)-1])
	// snapshots carry bucket counts only
	writeSample(b, name+"_sum", 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	return strings.ReplaceAll(help, "\n", "\\n")
}
