package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/phone"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/sanitize"
)

// BatchSize is the number of leads written per SaveBatch call.
const BatchSize = 100

// Export column headers. Lookup ignores case.
const (
	ColBusinessName = "Business Name"
	ColPhone        = "Phone Number"
	ColRating       = "Rating"
	ColReviewCount  = "Review Count"
	ColAddress      = "Address"
	ColCity         = "City"
	ColState        = "State"
	ColZip          = "ZIP"
	ColWebsite      = "Website"
	ColLeadQuality  = "Lead Quality"
	ColOwnerName    = "Owner Name"
	ColOwnerEmail   = "Owner Email"
	ColContactEmail = "Contact Email"
	ColNotes        = "Notes"
)

// ErrNoBusinessNameColumn means the header row lacks the one required column.
var ErrNoBusinessNameColumn = errors.New("csv has no " + ColBusinessName + " column")

// QualityScore maps an export's lead quality to a score.
// HIGH is hot, MEDIUM warm, LOW cold. Anything else is warm.
func QualityScore(quality string) domain.Score {
	switch strings.ToUpper(strings.TrimSpace(quality)) {
	case "HIGH":
		return domain.ScoreHot
	case "LOW":
		return domain.ScoreCold
	default:
		return domain.ScoreWarm
	}
}

// Skipped is a row that was not imported.
type Skipped struct {
	Line   int
	Reason string
}

// ImportResult summarizes an import.
type ImportResult struct {
	Leads    []*domain.Lead
	Skipped  []Skipped
	Inserted int
	Batches  int
}

// ImportOptions tunes Import.
type ImportOptions struct {
	// Industry is set on every lead. The export carries none.
	Industry string
	// DryRun parses and maps rows without writing.
	DryRun bool
	// Now stamps the leads. Defaults to time.Now.
	Now func() time.Time
}

type header map[string]int

func newHeader(row []string) header {
	h := header{}
	fold := cases.Fold()
	for i, name := range row {
		key := fold.String(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

func (h header) get(row []string, col string) string {
	i, ok := h[cases.Fold().String(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Parse reads a lead export. Rows without a business name are skipped with a
// reason; malformed numbers are left at zero.
func Parse(r io.Reader, opts ImportOptions) (*ImportResult, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ImportResult{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	h := newHeader(first)
	if _, ok := h[cases.Fold().String(ColBusinessName)]; !ok {
		return nil, ErrNoBusinessNameColumn
	}

	res := &ImportResult{}
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if blank(row) {
			continue
		}
		if reason := cleanRow(first, row); reason != "" {
			res.Skipped = append(res.Skipped, Skipped{Line: line, Reason: reason})
			continue
		}

		business := h.get(row, ColBusinessName)
		if business == "" {
			res.Skipped = append(res.Skipped, Skipped{Line: line, Reason: "missing business name"})
			continue
		}

		at := now().UTC()
		lead := &domain.Lead{
			ID:           NewID(at),
			BusinessName: business,
			ContactName:  h.get(row, ColOwnerName),
			Phone:        phone.NormalizeE164(h.get(row, ColPhone)),
			Email:        firstNonEmpty(h.get(row, ColOwnerEmail), h.get(row, ColContactEmail)),
			Address:      h.get(row, ColAddress),
			City:         h.get(row, ColCity),
			State:        h.get(row, ColState),
			Zip:          h.get(row, ColZip),
			Website:      h.get(row, ColWebsite),
			Industry:     opts.Industry,
			Status:       domain.StatusNew,
			Score:        QualityScore(h.get(row, ColLeadQuality)),
			Notes:        h.get(row, ColNotes),
			Source:       "import",
			CreatedAt:    at,
		}
		if v := h.get(row, ColRating); v != "" {
			lead.Rating, _ = strconv.ParseFloat(v, 64)
		}
		if v := h.get(row, ColReviewCount); v != "" {
			lead.ReviewCount, _ = strconv.Atoi(strings.ReplaceAll(v, ",", ""))
		}
		res.Leads = append(res.Leads, lead)
	}
	return res, nil
}

// Import parses r and saves the leads to store in batches of BatchSize.
// On a failed batch it returns the partial result along with the error.
func Import(ctx context.Context, r io.Reader, store ports.LeadStore, opts ImportOptions) (*ImportResult, error) {
	res, err := Parse(r, opts)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return res, nil
	}

	for start := 0; start < len(res.Leads); start += BatchSize {
		end := min(start+BatchSize, len(res.Leads))
		if err := store.SaveBatch(ctx, res.Leads[start:end]); err != nil {
			return res, fmt.Errorf("failed to save batch %d: %w", res.Batches+1, err)
		}
		res.Batches++
		res.Inserted += end - start
	}
	return res, nil
}

// cleanRow sanitizes every cell in place. It returns why the row is unusable,
// or "" when every cell passed.
func cleanRow(names, row []string) string {
	for i, cell := range row {
		col := fmt.Sprintf("column %d", i+1)
		if i < len(names) {
			col = strings.TrimSpace(strings.TrimPrefix(names[i], "\ufeff"))
		}
		clean, err := sanitize.Cell(col, cell)
		if err != nil {
			return err.Error()
		}
		row[i] = clean
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
