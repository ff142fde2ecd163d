// Command xlparse runs the donation parser on a workbook from the command
// line and prints the extracted tables as JSON.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/datadonation/internal/config"
	"github.com/JonMunkholm/datadonation/internal/donation"
	"github.com/JonMunkholm/datadonation/internal/extract"
	"github.com/JonMunkholm/datadonation/internal/logging"
	"github.com/JonMunkholm/datadonation/internal/profile"
	"github.com/JonMunkholm/datadonation/internal/workbook"
	"github.com/spf13/cobra"
)

// errInvalid marks a workbook that parsed but holds nothing to donate.
var errInvalid = errors.New("no donatable data")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errInvalid) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "xlparse",
		Short:        "Extract donation tables from data export workbooks",
		SilenceUsage: true,
	}
	root.AddCommand(newParseCmd(), newProfilesCmd(), newProfileCmd())
	return root
}

type parseOptions struct {
	profile     string
	profileFile string
	output      string
	pretty      bool
	asPackage   bool
	logLevel    string
}

// parseOutput is what parse prints without --package.
type parseOutput struct {
	Profile       string                     `json:"profile"`
	Valid         bool                       `json:"valid"`
	Reason        string                     `json:"reason,omitempty"`
	Data          *extract.ParsedData        `json:"data"`
	ParsingErrors extract.ParsingErrorReport `json:"parsingErrors"`
}

func newParseCmd() *cobra.Command {
	opts := &parseOptions{}
	cmd := &cobra.Command{
		Use:   "parse [input.xlsx]",
		Short: "Parse a workbook and print the extracted tables",
		Long: `parse reads a workbook with the configured profile and prints the
extracted tables and parsing errors as JSON. Parser thresholds follow the
PARSE_* environment variables. The exit status is 2 when nothing in the
workbook can be donated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.profile, "profile", "p", "", "Profile name (default: PARSE_PROFILE)")
	cmd.Flags().StringVar(&opts.profileFile, "profile-file", "", "YAML profile to use instead of a built-in one")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().BoolVar(&opts.asPackage, "package", false, "Print a donation package with every row kept")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")
	return cmd
}

func runParse(cmd *cobra.Command, input string, opts *parseOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cmd.ErrOrStderr(), opts.logLevel, "text")

	prof, err := resolveProfile(opts, cfg.Parse)
	if err != nil {
		return err
	}
	validator, err := prof.ValidatorFunc()
	if err != nil {
		return err
	}

	wb, err := workbook.DecodeFile(input, workbook.DefaultDecodeOptions())
	if err != nil {
		return err
	}
	res := prof.Parser(cfg.Parse.Params(), logger.With("file", input)).Parse(wb)
	verdict := validator(res)

	var out []byte
	if opts.asPackage {
		if !verdict.Valid {
			return fmt.Errorf("%w: %s", errInvalid, verdict.Reason)
		}
		pkg := donation.Assemble(res.Data, nil, res.ParsingErrors, donation.NewSubmissionID(), time.Now())
		if out, err = pkg.Encode(); err != nil {
			return err
		}
	} else {
		out, err = encode(parseOutput{
			Profile:       prof.Name,
			Valid:         verdict.Valid,
			Reason:        verdict.Reason,
			Data:          res.Data,
			ParsingErrors: res.ParsingErrors,
		}, opts.pretty)
		if err != nil {
			return err
		}
	}

	if err := write(cmd.OutOrStdout(), opts.output, out); err != nil {
		return err
	}
	if !verdict.Valid {
		return fmt.Errorf("%w: %s", errInvalid, verdict.Reason)
	}
	return nil
}

func resolveProfile(opts *parseOptions, pc config.ParseConfig) (profile.Profile, error) {
	if opts.profileFile != "" {
		return profile.LoadFile(opts.profileFile)
	}
	if pc.ProfileFile != "" && opts.profile == "" {
		return profile.LoadFile(pc.ProfileFile)
	}
	name := opts.profile
	if name == "" {
		name = pc.Profile
	}
	return profile.Get(name)
}

func encode(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func write(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, string(data))
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTITLE\tSHEETS\tTARGETED")
			for _, p := range profile.All() {
				targeted := 0
				for _, s := range p.Sheets {
					if s.Mode() == extract.ModeTargeted {
						targeted++
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", p.Name, p.Title, len(p.Sheets), targeted)
			}
			return tw.Flush()
		},
	}
}

// newProfileCmd prints a profile as YAML, a starting point for
// PARSE_PROFILE_FILE.
func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile [name]",
		Short: "Print a built-in profile as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Get(args[0])
			if err != nil {
				return err
			}
			data, err := profile.Marshal(p)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
