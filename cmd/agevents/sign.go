package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/advdv/agevents/cmd/agevents/internal/cmdexec"
	"github.com/advdv/agevents/cmd/agevents/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
)

func signCmd() *cli.Command {
	return &cli.Command{
		Name:      "sign",
		Usage:     "Create detached signatures for release artifacts",
		ArgsUsage: "ARTIFACT...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "secret-id",
				Usage: "Secrets Manager secret holding the armored signing key",
			},
			&cli.StringFlag{
				Name:  "key-id",
				Usage: "Key to sign with when the keyring holds more than one",
			},
			&cli.StringFlag{
				Name:  "profile",
				Usage: "AWS profile used to retrieve the signing key",
			},
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Overwrite existing signature files without asking",
			},
		},
		Action: config.RunWithConfig(runSign),
	}
}

// secretReader is the subset of the Secrets Manager client used by sign.
type secretReader interface {
	GetSecretValue(
		ctx context.Context, input *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

type signOptions struct {
	SecretID  string
	KeyID     string
	Yes       bool
	Artifacts []string
	Output    io.Writer
	Secrets   secretReader
	Exec      cmdexec.Executor

	// Confirm asks whether an existing signature file may be overwritten.
	Confirm func(path string) (bool, error)
}

func runSign(ctx context.Context, cmd *cli.Command, cfg config.Config) error {
	signing := cfg.Inner.Signing

	secretID := cmd.String("secret-id")
	if secretID == "" {
		secretID = signing.SecretID
	}
	if secretID == "" {
		return errors.New(
			"no signing secret configured: pass --secret-id or set signing.secret_id in " + config.FileName)
	}

	keyID := cmd.String("key-id")
	if keyID == "" {
		keyID = signing.KeyID
	}

	profile := cmd.String("profile")
	if profile == "" {
		profile = signing.Profile
	}

	if cmd.Args().Len() == 0 {
		return errors.New("no artifacts to sign")
	}

	secrets, err := newSecretsClient(ctx, profile)
	if err != nil {
		return err
	}

	return doSign(ctx, signOptions{
		SecretID:  secretID,
		KeyID:     keyID,
		Yes:       cmd.Bool("yes"),
		Artifacts: cmd.Args().Slice(),
		Output:    os.Stdout,
		Secrets:   secrets,
		Exec:      cmdexec.New(cfg).WithOutput(os.Stdout, os.Stderr),
		Confirm:   confirmOverwrite,
	})
}

func doSign(ctx context.Context, opts signOptions) error {
	key, err := fetchSigningKey(ctx, opts.Secrets, opts.SecretID)
	if err != nil {
		return err
	}

	// The key is imported into an ephemeral keyring so the deployer's own
	// keyring is never touched.
	gnupgHome, err := os.MkdirTemp("", "agevents-sign-")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary keyring directory")
	}
	defer os.RemoveAll(gnupgHome)

	if err := os.Chmod(gnupgHome, 0o700); err != nil {
		return errors.Wrap(err, "failed to restrict keyring directory permissions")
	}

	gpg := opts.Exec.WithEnv("GNUPGHOME", gnupgHome)

	writeOutputf(opts.Output, "Importing signing key...\n")
	if err := gpg.RunWithStdin(ctx, strings.NewReader(key), "gpg", "--batch", "--import"); err != nil {
		return err
	}

	for _, artifact := range opts.Artifacts {
		sigPath := signaturePath(artifact)

		if !opts.Yes && fileExists(sigPath) {
			overwrite, err := opts.Confirm(sigPath)
			if err != nil {
				return err
			}
			if !overwrite {
				writeOutputf(opts.Output, "Skipping %s\n", artifact)
				continue
			}
		}

		args := []string{"--batch", "--yes", "--armor", "--output", sigPath}
		if opts.KeyID != "" {
			args = append(args, "--local-user", opts.KeyID)
		}
		args = append(args, "--detach-sign", artifact)

		if err := gpg.Run(ctx, "gpg", args...); err != nil {
			return err
		}

		writeOutputf(opts.Output, "Signed %s -> %s\n", artifact, sigPath)
	}

	return nil
}

// fetchSigningKey retrieves the armored signing key from Secrets Manager.
func fetchSigningKey(ctx context.Context, secrets secretReader, secretID string) (string, error) {
	out, err := secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to retrieve signing key %q", secretID)
	}

	switch {
	case out.SecretString != nil:
		return *out.SecretString, nil
	case len(out.SecretBinary) > 0:
		return string(out.SecretBinary), nil
	default:
		return "", errors.Newf("signing key secret %q holds no value", secretID)
	}
}

func newSecretsClient(ctx context.Context, profile string) (*secretsmanager.Client, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if profile != "" {
		optFns = append(optFns, awsconfig.WithSharedConfigProfile(profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}

	return secretsmanager.NewFromConfig(awsCfg), nil
}

func confirmOverwrite(path string) (bool, error) {
	overwrite := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("Overwrite existing signature %s?", path)).
			Value(&overwrite),
	))

	if err := form.Run(); err != nil {
		return false, errors.Wrap(err, "overwrite confirmation failed")
	}

	return overwrite, nil
}

func signaturePath(artifact string) string {
	return artifact + ".sig"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeOutputf(w io.Writer, format string, args ...any) {
	if w != nil {
		_, _ = fmt.Fprintf(w, format, args...)
	}
}
