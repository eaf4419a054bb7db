package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garyellow/chatai/internal/r2client"
)

const zstdContentType = "application/zstd"

func newPackCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "pack SRC DST",
		Short: "zstd-compress a table, writing a file or uploading to s3://",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]
			if !strings.HasSuffix(dst, ".zst") {
				return fmt.Errorf("destination %q must end in .zst", dst)
			}

			if !strings.HasPrefix(dst, "s3://") {
				if err := r2client.CompressFile(src, dst); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", dst)
				return nil
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			bucket, key, err := r2client.ParseURL(dst)
			if err != nil {
				return err
			}

			dir, err := os.MkdirTemp("", "chatctl-pack-")
			if err != nil {
				return err
			}
			defer func() { _ = os.RemoveAll(dir) }()

			tmp := filepath.Join(dir, filepath.Base(key))
			if err := r2client.CompressFile(src, tmp); err != nil {
				return err
			}
			f, err := os.Open(tmp)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			client, err := r2client.New(cmd.Context(), s3Config(cfg))
			if err != nil {
				return err
			}
			if !force {
				switch _, err := client.HeadObject(cmd.Context(), bucket, key); {
				case err == nil:
					return fmt.Errorf("%s already exists, use --force to replace it", dst)
				case !errors.Is(err, r2client.ErrNotFound):
					return err
				}
			}
			etag, err := client.Upload(cmd.Context(), bucket, key, f, zstdContentType)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (etag %s)\n", dst, etag)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing s3:// object")
	return cmd
}

func newUnpackCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack SRC DST",
		Short: "Decompress a .zst table from a file or s3:// to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]

			var r io.ReadCloser
			if strings.HasPrefix(src, "s3://") {
				cfg, err := loadConfig(flags)
				if err != nil {
					return err
				}
				bucket, key, err := r2client.ParseURL(src)
				if err != nil {
					return err
				}
				client, err := r2client.New(cmd.Context(), s3Config(cfg))
				if err != nil {
					return err
				}
				if r, _, err = client.Download(cmd.Context(), bucket, key); err != nil {
					return err
				}
			} else {
				f, err := os.Open(src)
				if err != nil {
					return err
				}
				r = f
			}
			defer func() { _ = r.Close() }()

			if err := r2client.DecompressStream(r, dst); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", dst)
			return nil
		},
	}
}
