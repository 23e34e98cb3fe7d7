package main

import (
	"context"
	"io"
	"os"

	"github.com/advdv/agevents/cmd/agevents/internal/cmdexec"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v3"
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify detached signatures of release artifacts",
		ArgsUsage: "ARTIFACT...",
		Action:    runVerify,
	}
}

type verifyOptions struct {
	Artifacts []string
	Output    io.Writer
	Exec      cmdexec.Executor
}

func runVerify(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("no artifacts to verify")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to get current working directory")
	}

	return doVerify(ctx, verifyOptions{
		Artifacts: cmd.Args().Slice(),
		Output:    os.Stdout,
		Exec:      cmdexec.NewWithDir(cwd).WithOutput(os.Stdout, os.Stderr),
	})
}

func doVerify(ctx context.Context, opts verifyOptions) error {
	for _, artifact := range opts.Artifacts {
		sigPath := signaturePath(artifact)
		if !fileExists(sigPath) {
			return errors.Newf("no signature found for %s (expected %s)", artifact, sigPath)
		}

		if err := opts.Exec.Run(ctx, "gpg", "--verify", sigPath, artifact); err != nil {
			return err
		}

		writeOutputf(opts.Output, "Verified %s\n", artifact)
	}

	return nil
}
