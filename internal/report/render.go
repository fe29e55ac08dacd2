// Package report renders a descriptive profile of the normalized table.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/BartekS5/crashclean/internal/etl"
	"github.com/BartekS5/crashclean/pkg/database"
	"github.com/BartekS5/crashclean/pkg/models"
)

const (
	lineWidth    = 70
	topDeadliest = 10
	topOperators = 15
	topLocations = 20
	maxCellWidth = 40
)

// LoadRecords reads the normalized table in row order.
func LoadRecords(ctx context.Context, store *database.Store, table string) ([]models.Record, error) {
	var out []models.Record
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		store.QuoteAll(models.ColumnNames()), store.Quote(table), store.Quote(models.ColRowID))
	if err := store.SelectContext(ctx, &out, query); err != nil {
		return nil, &etl.StoreError{Store: store.Label, Op: fmt.Sprintf("read table %s", table), Err: err}
	}
	return out, nil
}

// Render writes the full profile. Metadata may be nil, in which case it is
// derived from records.
func Render(w io.Writer, records []models.Record, meta []models.ColumnMetadata) error {
	if meta == nil {
		meta = etl.MetadataFromRecords(records)
	}
	p := &printer{w: w}
	p.nullDistribution(len(records), meta)
	p.descriptive(records)
	p.trends(records)
	p.locations(records)
	return p.err
}

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string) {
	rule := strings.Repeat("═", lineWidth)
	p.printf("\n%s\n  %s\n%s\n", rule, title, rule)
}

func (p *printer) sub(title string) {
	p.printf("\n  %s\n  %s\n", title, strings.Repeat("─", runewidth.StringWidth(title)+2))
}

// table writes left-aligned columns sized to their widest cell.
func (p *printer) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range row {
			row[i] = runewidth.Truncate(row[i], maxCellWidth, "…")
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string) {
		var sb strings.Builder
		sb.WriteString(" ")
		for i, c := range cells {
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(c, widths[i]))
		}
		p.printf("%s\n", strings.TrimRight(sb.String(), " "))
	}

	line(headers)
	dividers := make([]string, len(widths))
	for i, w := range widths {
		dividers[i] = strings.Repeat("-", w)
	}
	line(dividers)
	for _, row := range rows {
		line(row)
	}
}

func (p *printer) nullDistribution(total int, meta []models.ColumnMetadata) {
	p.section("1. DATA PROFILING: NULL distribution")
	p.printf("\n  Total rows: %d\n\n", total)

	rows := make([][]string, 0, len(meta))
	for _, m := range meta {
		rows = append(rows, []string{
			m.Field, m.DataType,
			fmt.Sprint(m.TotalRows - m.NullCount), fmt.Sprint(m.NullCount),
			pct(int64(m.NullCount), int64(m.TotalRows)), fmt.Sprint(m.UniqueCount),
		})
	}
	p.table([]string{"Column", "Type", "Non-NULL", "NULL", "NULL %", "Unique"}, rows)
}

func (p *printer) descriptive(records []models.Record) {
	p.section("2. DESCRIPTIVE STATISTICS")

	var fatal, aboard int64
	for _, r := range records {
		if r.FatalitiesAboard != nil && r.AboardTotal != nil && *r.AboardTotal > 0 {
			fatal += *r.FatalitiesAboard
			aboard += *r.AboardTotal
		}
	}
	p.sub("Fatality and survival rate (flights with known totals)")
	p.printf("  Fatality rate : %s\n", pct(fatal, aboard))
	p.printf("  Survival rate : %s\n", pct(aboard-fatal, aboard))

	var groundCrashes, groundTotal, groundMax int64
	for _, r := range records {
		if r.Ground != nil && *r.Ground > 0 {
			groundCrashes++
			groundTotal += *r.Ground
			if *r.Ground > groundMax {
				groundMax = *r.Ground
			}
		}
	}
	p.sub("Ground casualties")
	p.printf("  Crashes with ground fatalities : %d\n", groundCrashes)
	p.printf("  Total ground fatalities        : %d\n", groundTotal)
	p.printf("  Max ground fatalities (single) : %d\n", groundMax)

	var pax, crew int64
	for _, r := range records {
		if r.FatalitiesPassengers != nil && r.FatalitiesCrew != nil {
			pax += *r.FatalitiesPassengers
			crew += *r.FatalitiesCrew
		}
	}
	p.sub("Crew vs passenger fatalities")
	p.printf("  Passenger fatalities : %d  (%s)\n", pax, pct(pax, pax+crew))
	p.printf("  Crew fatalities      : %d  (%s)\n", crew, pct(crew, pax+crew))

	deadly := make([]models.Record, 0, len(records))
	for _, r := range records {
		if r.FatalitiesTotal != nil {
			deadly = append(deadly, r)
		}
	}
	sort.SliceStable(deadly, func(i, j int) bool { return *deadly[i].FatalitiesTotal > *deadly[j].FatalitiesTotal })
	if len(deadly) > topDeadliest {
		deadly = deadly[:topDeadliest]
	}
	rows := make([][]string, len(deadly))
	for i, r := range deadly {
		rows[i] = []string{text(r.Date), text(r.Operator), text(r.ACType), text(r.Location), fmt.Sprint(*r.FatalitiesTotal)}
	}
	p.sub(fmt.Sprintf("Top %d deadliest crashes", topDeadliest))
	p.table([]string{"Date", "Operator", "Aircraft", "Location", "Fatalities"}, rows)
}

type tally struct {
	key        string
	crashes    int
	fatalities int64
	known      bool
}

func (t *tally) add(r models.Record) {
	t.crashes++
	if r.FatalitiesTotal != nil {
		t.fatalities += *r.FatalitiesTotal
		t.known = true
	}
}

func (t *tally) row() []string {
	f := "N/A"
	if t.known {
		f = fmt.Sprint(t.fatalities)
	}
	return []string{t.key, fmt.Sprint(t.crashes), f}
}

func group(records []models.Record, key func(models.Record) (string, bool)) []*tally {
	byKey := make(map[string]*tally)
	var out []*tally
	for _, r := range records {
		k, ok := key(r)
		if !ok {
			continue
		}
		t, seen := byKey[k]
		if !seen {
			t = &tally{key: k}
			byKey[k] = t
			out = append(out, t)
		}
		t.add(r)
	}
	return out
}

func byCrashes(ts []*tally, limit int) []*tally {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].crashes != ts[j].crashes {
			return ts[i].crashes > ts[j].crashes
		}
		return ts[i].key < ts[j].key
	})
	if len(ts) > limit {
		ts = ts[:limit]
	}
	return ts
}

func (p *printer) trends(records []models.Record) {
	p.section("3. TREND ANALYSIS")

	decades := group(records, func(r models.Record) (string, bool) {
		if r.Date == nil || len(*r.Date) < 4 {
			return "", false
		}
		return (*r.Date)[:3] + "0s", true
	})
	sort.Slice(decades, func(i, j int) bool { return decades[i].key < decades[j].key })
	rows := make([][]string, len(decades))
	for i, t := range decades {
		rows[i] = t.row()
	}
	p.sub("Crashes and fatalities per decade")
	p.table([]string{"Decade", "Crashes", "Total Fatalities"}, rows)

	ops := byCrashes(group(records, func(r models.Record) (string, bool) {
		return text(r.Operator), r.Operator != nil
	}), topOperators)
	rows = make([][]string, len(ops))
	for i, t := range ops {
		rows[i] = t.row()
	}
	p.sub(fmt.Sprintf("Top %d operators by crash count", topOperators))
	p.table([]string{"Operator", "Crashes", "Total Fatalities"}, rows)
}

// locations groups by the last comma-separated part of the location, which
// is usually the country or region.
func (p *printer) locations(records []models.Record) {
	p.section("4. GEOGRAPHIC ANALYSIS")
	regions := byCrashes(group(records, func(r models.Record) (string, bool) {
		if r.Location == nil {
			return "", false
		}
		parts := strings.Split(*r.Location, ",")
		return strings.TrimSpace(parts[len(parts)-1]), true
	}), topLocations)
	rows := make([][]string, len(regions))
	for i, t := range regions {
		rows[i] = t.row()[:2]
	}
	p.sub(fmt.Sprintf("Top %d countries / regions by crash count", topLocations))
	p.table([]string{"Country / Region", "Crashes"}, rows)
}

func pct(num, den int64) string {
	if den == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", float64(num)/float64(den)*100)
}

func text(v *string) string {
	if v == nil {
		return "NULL"
	}
	return *v
}
