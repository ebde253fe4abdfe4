package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/universal-fhevm/fhevm-go/internal/cliconfig"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/ginfhevm"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/logging"
	"github.com/universal-fhevm/fhevm-go/pkg/fhevm/vanilla"
)

// session is a ready client plus what it was built from.
type session struct {
	settings cliconfig.Settings
	log      *zap.Logger
	client   *vanilla.Client
}

func openSession(cmd *cobra.Command, bootstrap bootstrapFunc) (*session, error) {
	s, err := cliconfig.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := newLogger(s.LogLevel, s.LogFormat, s.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	boot, err := bootstrap(s)
	if err != nil {
		return nil, err
	}

	client, err := vanilla.NewClient(s.Config,
		fhevm.WithBootstrapper(boot),
		fhevm.WithInstanceCache(fhevm.NewInstanceCache()),
		fhevm.WithLogger(logging.NewZap(log)),
	)
	if err != nil {
		return nil, err
	}
	if err := client.Init(cmd.Context()); err != nil {
		return nil, err
	}
	client.SetUserAddress(s.UserAddress)
	client.SetPrivateKey(s.PrivateKey)

	return &session{settings: s, log: log, client: client}, nil
}

func (s *session) Close(ctx context.Context) {
	if engine, err := s.client.Engine(); err == nil {
		if c, ok := engine.(interface{ Close(context.Context) error }); ok {
			if err := c.Close(ctx); err != nil {
				s.log.Warn("close engine", zap.Error(err))
			}
		}
	}
	_ = s.log.Sync()
}

// withSession opens a session for the duration of fn.
func withSession(bootstrap bootstrapFunc, fn func(cmd *cobra.Command, s *session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd, bootstrap)
		if err != nil {
			return err
		}
		defer s.Close(context.WithoutCancel(cmd.Context()))
		return fn(cmd, s)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wrapper and engine versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fhevm-go version: %s\n", fhevm.WrapperVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "engine version: %s\n", fhevm.EngineVersion)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the network configuration and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := cliconfig.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s.Config)
		},
	})
	return cmd
}

func newKeypairCmd(bootstrap bootstrapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "keypair",
		Short: "Generate a reencryption keypair",
		Args:  cobra.NoArgs,
		RunE: withSession(bootstrap, func(cmd *cobra.Command, s *session) error {
			engine, err := s.client.Engine()
			if err != nil {
				return err
			}
			kp, err := engine.GenerateKeypair()
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), kp)
		}),
	}
}

func newEncryptCmd(bootstrap bootstrapFunc) *cobra.Command {
	var typ, value, contract string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt one value for a contract",
		Args:  cobra.NoArgs,
		RunE: withSession(bootstrap, func(cmd *cobra.Command, s *session) error {
			t, err := fhevm.ParseEncryptType(typ)
			if err != nil {
				return err
			}
			v, err := fhevm.ParseValue(t, value)
			if err != nil {
				return err
			}
			out, err := s.client.Encrypt(cmd.Context(), fhevm.EncryptParams{Value: v, Type: t, ContractAddress: contract})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ginfhevm.NewEncryptResponse(out))
		}),
	}
	cmd.Flags().StringVar(&typ, "type", "", "plaintext type: bool, uint8 ... uint256")
	cmd.Flags().StringVar(&value, "value", "", "plaintext value, decimal or 0x hex")
	cmd.Flags().StringVar(&contract, "contract", "", "contract the input is bound to")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newEncryptBatchCmd(bootstrap bootstrapFunc) *cobra.Command {
	var input, contract string
	cmd := &cobra.Command{
		Use:   "encrypt-batch",
		Short: "Encrypt several values under one input proof",
		Long: `Reads a JSON document of the form
  {"values": [{"value": 1, "type": "uint8"}, ...], "contractAddress": "0x..."}
from --input, or from stdin when --input is "-".`,
		Args: cobra.NoArgs,
		RunE: withSession(bootstrap, func(cmd *cobra.Command, s *session) error {
			batch, err := readBatch(cmd.InOrStdin(), input)
			if err != nil {
				return err
			}
			if contract != "" {
				batch.ContractAddress = contract
			}
			params, err := batch.Params()
			if err != nil {
				return err
			}
			out, err := s.client.EncryptBatch(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ginfhevm.NewEncryptResponse(out))
		}),
	}
	cmd.Flags().StringVar(&input, "input", "-", "batch file, or - for stdin")
	cmd.Flags().StringVar(&contract, "contract", "", "overrides contractAddress from the input")
	return cmd
}

func readBatch(stdin io.Reader, path string) (fhevm.WireBatch, error) {
	r := stdin
	if path != "-" {
		abs, err := cliconfig.ExpandPath(path)
		if err != nil {
			return fhevm.WireBatch{}, err
		}
		f, err := os.Open(abs)
		if err != nil {
			return fhevm.WireBatch{}, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	var batch fhevm.WireBatch
	if err := json.NewDecoder(r).Decode(&batch); err != nil {
		return fhevm.WireBatch{}, fmt.Errorf("decode input: %w", err)
	}
	return batch, nil
}

func newTokenCmd(bootstrap bootstrapFunc) *cobra.Command {
	var contract string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the EIP-712 payload that authorizes reencryption",
		Args:  cobra.NoArgs,
		RunE: withSession(bootstrap, func(cmd *cobra.Command, s *session) error {
			payload, err := s.client.GenerateToken(cmd.Context(), fhevm.TokenParams{VerifyingContract: contract})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), payload)
		}),
	}
	cmd.Flags().StringVar(&contract, "contract", "", "verifying contract")
	_ = cmd.MarkFlagRequired("contract")
	return cmd
}

func newDecryptCmd(bootstrap bootstrapFunc) *cobra.Command {
	var handle, contract, signature string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Reencrypt a handle and print the plaintext",
		Args:  cobra.NoArgs,
		RunE: withSession(bootstrap, func(cmd *cobra.Command, s *session) error {
			if s.settings.PrivateKey == "" {
				return errors.New("--private-key is required")
			}
			v, err := s.client.Decrypt(cmd.Context(), fhevm.DecryptParams{Handle: handle, ContractAddress: contract}, signature)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.Dec())
			return nil
		}),
	}
	cmd.Flags().StringVar(&handle, "handle", "", "ciphertext handle, 0x hex or decimal")
	cmd.Flags().StringVar(&contract, "contract", "", "contract holding the ciphertext")
	cmd.Flags().StringVar(&signature, "signature", "", "signature over the token")
	_ = cmd.MarkFlagRequired("handle")
	_ = cmd.MarkFlagRequired("signature")
	return cmd
}
