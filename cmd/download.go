package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/session"
	"github.com/NamanBalaji/updater/internal/verify"
)

var (
	downloadSHA256 string
	downloadMagic  string
)

var downloadCmd = &cobra.Command{
	Use:   "download <url> [dest]",
	Short: "Download a file with parallel ranged connections",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawURL := args[0]

		dest := ""
		if len(args) == 2 {
			dest = args[1]
		} else {
			dest = filepath.Join(cfg.Download.Dir, fileNameFromURL(rawURL))
		}

		repo, err := openHistory()
		if err != nil {
			return err
		}
		defer repo.Close()

		opts := session.Options{}

		if downloadSHA256 != "" || downloadMagic != "" {
			v := verify.Verifier{SHA256: downloadSHA256}

			if downloadMagic != "" {
				if v.Magic, err = verify.ParseMagic(downloadMagic); err != nil {
					return err
				}
			}

			opts.Verify = v.Verify
		}

		line := &progressLine{}
		opts.OnProgress = line.update

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		manager := session.NewManager(newDownloader(), repo)

		s, err := manager.Start(ctx, rawURL, dest, opts)
		if err != nil {
			return err
		}

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		go func() {
			for {
				select {
				case <-sigs:
				case <-s.Done():
					return
				}

				// first signal finishes running chunks, the second aborts them
				if !s.Cancel() {
					cancel()
				}
			}
		}()

		<-s.Done()
		line.finish()

		if err := s.Err(); err != nil {
			if errors.Is(err, errors.ErrCancelled) {
				PrintWarning("download cancelled")
				return nil
			}

			return err
		}

		p := s.Progress()
		PrintSuccess(fmt.Sprintf("saved %s (%s)", dest, humanize.IBytes(uint64(p.TotalSize))))

		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&downloadSHA256, "sha256", "", "expected SHA-256 of the file")
	downloadCmd.Flags().StringVar(&downloadMagic, "magic", "", "required leading bytes, hex encoded")
}

func fileNameFromURL(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}

	return "download"
}
