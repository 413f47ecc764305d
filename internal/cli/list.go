package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/taleweaver/internal/story"
)

// StorySummary is one stored story without its photo bytes.
type StorySummary struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description"`
	CreatedAt   string   `json:"createdAt"`
	HasPhoto    bool     `json:"hasPhoto"`
	PhotoURL    string   `json:"photoUrl,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Synced      bool     `json:"synced"`
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Stories []StorySummary `json:"stories"`
	Total   int            `json:"total"`
}

func summarize(r story.Record) StorySummary {
	s := StorySummary{
		ID:          r.ID,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		HasPhoto:    r.Photo != nil,
		Lat:         r.Lat,
		Lon:         r.Lon,
		Synced:      r.IsSynced(),
	}
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.PhotoURL != nil {
		s.PhotoURL = *r.PhotoURL
	}
	return s
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stories saved on this device",
		Long: `List every story in the local store, oldest id first.

Photo bytes are not printed; stories with a stored photo are marked.

Examples:
  taleweaver list
  taleweaver list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts)
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, opts *RootOptions) error {
	app, out, err := opts.start(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.Stories.GetAll(cmd.Context())
	if err != nil {
		return fail(out, "failed to list stories", err)
	}

	result := ListResult{Stories: make([]StorySummary, 0, len(records)), Total: len(records)}
	for _, r := range records {
		result.Stories = append(result.Stories, summarize(r))
	}

	if out.Format == "json" {
		return out.Success(result)
	}

	out.Printf("%d saved stories\n", result.Total)
	for _, s := range result.Stories {
		out.Printf("%6d  %s  %s", s.ID, s.CreatedAt, s.Description)
		if s.HasPhoto {
			out.Printf("  [photo]")
		}
		if !s.Synced {
			out.Printf("  [local]")
		}
		out.Printf("\n")
	}
	return nil
}
