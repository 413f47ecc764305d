package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/taleweaver/internal/feed"
)

// FeedOptions holds flags for the feed command.
type FeedOptions struct {
	*RootOptions
	Tales bool // show the stories saved on this device instead
}

// NewFeedCommand creates the feed command.
func NewFeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the story feed",
		Long: `Render the home feed once.

The feed is fetched from the story API. When the API fails or has no
stories, the stories saved on this device are shown instead. With
--tales only the saved stories are listed.

Examples:
  taleweaver feed
  taleweaver feed --tales
  taleweaver feed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Tales, "tales", false, "show saved tales only")

	return cmd
}

func runFeed(cmd *cobra.Command, opts *FeedOptions) error {
	app, out, err := opts.start(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	var view feed.View
	if opts.Tales {
		view = feed.NewTalesView(app.Stories, app.Registry, app.Logger)
	} else {
		view = feed.NewHomeView(app.Reconciler, app.Registry)
	}
	defer view.Close()

	page, err := view.Render(cmd.Context())
	if err != nil {
		return fail(out, "failed to render feed", err)
	}

	if out.Format == "json" {
		return out.Success(page)
	}
	writePage(out, page)
	return nil
}

// writePage prints a page as text.
func writePage(out *OutputFormatter, page feed.Page) {
	if page.Error != "" {
		out.VerboseLog("feed error: %s", page.Error)
	}
	if len(page.Items) == 0 {
		out.Printf("%s\n", page.Message)
		return
	}

	out.Printf("%d stories from %s, %d with location\n", len(page.Items), page.Origin, page.Located)
	for _, item := range page.Items {
		out.Printf("\n#%s", item.ID)
		if item.Name != "" {
			out.Printf("  %s", item.Name)
		}
		if item.CreatedAt != "" {
			out.Printf("  %s", item.CreatedAt)
		}
		out.Printf("\n  %s\n", item.Description)
		out.Printf("  image: %s\n", imageLabel(item))
		if item.HasLocation() {
			out.Printf("  location: %.4f, %.4f\n", *item.Lat, *item.Lon)
		}
		if page.Origin == feed.OriginLocal && !item.Synced {
			out.Printf("  not yet uploaded\n")
		}
	}
}

func imageLabel(item feed.Item) string {
	if item.ImageSource == feed.ImageReference {
		return "saved photo"
	}
	return item.Image
}
