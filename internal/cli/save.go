package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/taleweaver/internal/feed"
	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/story"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	RemoteID string // keep this remote story offline
	Publish  bool   // post the story, queueing it locally on failure
}

// SaveResult is the JSON payload of the save command.
type SaveResult struct {
	ID     int64  `json:"id,omitempty"`
	Status string `json:"status"`
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save [file]",
		Short: "Save a story on this device",
		Long: `Save a story to the local store.

The story is a JSON object read from file, or from stdin when file is
omitted or "-". It must have "description" and "photo" keys; photo is
base64 text or null.

With --remote the story is fetched from the API and kept offline along
with its photo. With --publish the story is posted to the API and kept
locally, unsynced, only if posting fails.

Examples:
  taleweaver save story.json
  echo '{"description": "Dusk", "photo": null}' | taleweaver save
  taleweaver save --remote story-abc123
  taleweaver save --publish story.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.RemoteID, "remote", "", "keep the remote story with this id offline")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "post the story to the API")
	cmd.MarkFlagsMutuallyExclusive("remote", "publish")

	return cmd
}

func runSave(cmd *cobra.Command, opts *SaveOptions, args []string) error {
	if opts.RemoteID != "" && len(args) > 0 {
		return NewExitError(ExitCommandError, "--remote does not read a file")
	}

	var data []byte
	if opts.RemoteID == "" {
		var err error
		if data, err = readInput(cmd, args); err != nil {
			return err
		}
	}

	app, out, err := opts.start(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	var result SaveResult

	switch {
	case opts.RemoteID != "":
		s, err := app.Remote.FetchStory(ctx, opts.RemoteID)
		if err != nil {
			return fail(out, "failed to fetch story", err)
		}
		id, err := feed.SaveOffline(ctx, app.Stories, app.Remote, s, feed.WithSaveLogger(app.Logger))
		if err != nil {
			return fail(out, "failed to save story", err)
		}
		result = SaveResult{ID: id, Status: "saved"}

	case opts.Publish:
		ns, err := newStoryFromJSON(data)
		if err != nil {
			if writeErr := out.Error(CodeInput, "invalid story: "+err.Error(), nil); writeErr != nil {
				return writeErr
			}
			return WrapExitError(ExitFailure, "invalid story", err)
		}
		res, err := feed.Publish(ctx, app.Remote, app.Stories, ns, feed.WithSaveLogger(app.Logger))
		if err != nil {
			return fail(out, "failed to publish story", err)
		}
		result = SaveResult{ID: res.LocalID, Status: string(res.Status)}

	default:
		id, err := app.Stories.SaveJSON(ctx, data)
		if err != nil {
			return fail(out, "failed to save story", err)
		}
		result = SaveResult{ID: id, Status: "saved"}
	}

	if out.Format == "json" {
		return out.Success(result)
	}
	switch result.Status {
	case string(feed.StatusPosted):
		out.Printf("Story posted\n")
	case string(feed.StatusQueued):
		out.Printf("Posting failed, story %d kept on this device\n", result.ID)
	default:
		out.Printf("Saved story %d\n", result.ID)
	}
	return nil
}

// readInput reads the named file, or stdin for no argument or "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", args[0]), err)
	}
	return data, nil
}

// newStoryFromJSON reads a story document as an upload.
func newStoryFromJSON(data []byte) (remote.NewStory, error) {
	d, err := story.ParseDraft(data)
	if err != nil {
		return remote.NewStory{}, err
	}
	desc, _ := d.Description.Get()
	photo, _ := d.Photo.Get()
	return remote.NewStory{
		Description: desc,
		Photo:       photo,
		Lat:         d.Lat,
		Lon:         d.Lon,
	}, nil
}
