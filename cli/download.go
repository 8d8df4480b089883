package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcbedrock-downloader/catalog"
	"mcbedrock-downloader/downloader"
)

const (
	barInterval = 250 * time.Millisecond
	logInterval = 2 * time.Second
)

var downloadHelp = `
Download a version by update identifier or by its exact name.

The package is saved to DOWNLOAD_DIR as Minecraft-NAME.appx
(Minecraft-Preview-NAME.appx for previews) unless --output is given.
Interrupting a download removes the partial file.
`

type downloadOptions struct {
	output string
	token  string
}

func newDownloadCmd(a *app) *cobra.Command {
	o := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download (UUID|NAME)",
		Short: "Download a version",
		Long:  downloadHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDownload(cmd.Context(), args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "", "output file path")
	f.StringVar(&o.token, "token", "", "MSA token for beta versions (default $MSA_TOKEN)")

	return cmd
}

func (a *app) runDownload(ctx context.Context, locator string, o *downloadOptions) error {
	out := a.env.Out

	session := a.newSession()
	vd := downloader.NewVersionDownloader(downloader.Options{
		Transport:      session,
		RequestTimeout: a.cfg.HTTPTimeout,
		Logger:         a.logger.Named("downloader"),
	})
	defer vd.Close()

	vl, err := a.loadCatalog(ctx, session)
	if err != nil {
		return err
	}

	v, err := vl.Resolve(locator)
	if err != nil {
		if errors.Is(err, catalog.ErrVersionNotFound) {
			fmt.Fprintf(out, "Version not found: %s\n", locator)
			return reported(err)
		}
		return err
	}

	output := o.output
	if output == "" {
		output = filepath.Join(a.cfg.DownloadDir, DefaultFileName(v))
	}

	fmt.Fprintf(out, "Downloading %s (%s)\n", v.Name, v.TypeName)
	fmt.Fprintf(out, "UUID: %s\n", v.UUID)
	fmt.Fprintf(out, "Output: %s\n", output)

	token := o.token
	if token == "" {
		token = a.cfg.MSAToken
	}
	if v.RequiresToken() && token == "" {
		a.errors.BetaTokenWarning(out)
		return reported(errTokenRequired)
	}
	if token != "" {
		if err := vd.EnableUserAuthorization(token); err != nil {
			return err
		}
		a.logger.Debug("using MSA token", zap.String("token", maskString(token)))
	}

	reporter, interval := a.newReporter()
	if err := reporter.StartTracking(ctx, v.Name); err != nil {
		return err
	}
	tracker := downloader.NewProgressTrackerWithInterval(reporter, interval).WithLogger(a.logger.Named("progress"))
	if err := tracker.Start(ctx); err != nil {
		reporter.Stop()
		return err
	}

	result, err := vd.Download(ctx, downloader.NewUpdateIdentity(v.UUID), output, tracker.Callbacks(downloader.Callbacks{}))
	if err != nil {
		tracker.Fail(err)
		if downloader.IsCancelled(err) {
			a.removePartial(output)
		}
		a.errors.DownloadFailure(out, err, v)
		return reported(err)
	}

	tracker.Complete(result)
	fmt.Fprintf(out, "\nDownload completed: %s\n", result.FilePath)
	return nil
}

// newReporter picks the progress display for this invocation
func (a *app) newReporter() (downloader.ProgressReporter, time.Duration) {
	if a.flags.quiet {
		return downloader.NewLogProgressReporter(a.logger.Named("progress")), logInterval
	}
	return downloader.NewTerminalProgressReporter(a.env.Err), barInterval
}

func (a *app) removePartial(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		a.logger.Info("removed partial download", zap.String("path", path))
	case !errors.Is(err, os.ErrNotExist):
		a.logger.Warn("failed to remove partial download", zap.String("path", path), zap.Error(err))
	}
}
