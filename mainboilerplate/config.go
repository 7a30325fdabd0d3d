package mainboilerplate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// ConfigFileEnv names an INI file which is used in preference to those
// found by searching ConfigSearchPaths.
const ConfigFileEnv = "GEOLOAD_CONFIG"

// ConfigRootEnv names an additional directory searched for INI files.
const ConfigRootEnv = "GEOLOAD_CONFIG_ROOT"

// ConfigFile is the INI file parsed by MustParseConfig, if any.
var ConfigFile string

// ConfigSearchPaths returns candidate paths of the INI file |configName|, in
// order of preference:
//   - The file named by $GEOLOAD_CONFIG, if set.
//   - The current working directory.
//   - ~/.config/geoload (under the users's $HOME or %UserProfile% directory).
//   - $GEOLOAD_CONFIG_ROOT, if set.
//   - /etc/geoload.
func ConfigSearchPaths(configName string) []string {
	var out []string

	if p := os.Getenv(ConfigFileEnv); p != "" {
		out = append(out, p)
	}
	out = append(out, configName)

	for _, home := range []string{os.Getenv("HOME"), os.Getenv("UserProfile")} {
		if home != "" {
			out = append(out, filepath.Join(home, ".config", "geoload", configName))
		}
	}
	if root := os.Getenv(ConfigRootEnv); root != "" {
		out = append(out, filepath.Join(root, configName))
	}
	return append(out, filepath.Join("/etc", "geoload", configName))
}

// ParseConfigFile parses the first present file of |paths| into |parser|,
// returning its path. An empty path and nil error are returned if no file is
// present. A file named by $GEOLOAD_CONFIG must be present.
func ParseConfigFile(parser *flags.Parser, paths []string) (string, error) {
	var iniParser = flags.NewIniParser(parser)
	var explicit = os.Getenv(ConfigFileEnv)

	for _, path := range paths {
		var err = iniParser.ParseFile(path)

		if err == nil {
			return path, nil
		} else if os.IsNotExist(err) && path != explicit {
			continue
		}
		return "", errors.WithMessagef(err, "parsing %s", path)
	}
	return "", nil
}

// MustParseConfig requires that the Parser parse from the combination of an
// optional INI file, configured environment bindings, and explicit flags.
// The INI file is the first of ConfigSearchPaths(|configName|) to exist.
func MustParseConfig(parser *flags.Parser, configName string) {
	// Allow unknown options while parsing an INI file.
	var origOptions = parser.Options
	parser.Options |= flags.IgnoreUnknown

	var err error
	if ConfigFile, err = ParseConfigFile(parser, ConfigSearchPaths(configName)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Restore original options for parsing argument flags.
	parser.Options = origOptions
	MustParseArgs(parser)
}

// MustParseArgs requires that Parser be able to ParseArgs without error.
func MustParseArgs(parser *flags.Parser) {
	var _, err = parser.ParseArgs(os.Args[1:])
	if err == nil {
		return
	}
	var flagErr, ok = err.(*flags.Error)
	if !ok {
		// A command returned an error, which it's already logged.
		os.Exit(1)
	}

	switch flagErr.Type {
	case flags.ErrDuplicatedFlag, flags.ErrTag, flags.ErrInvalidTag, flags.ErrShortNameTooLong, flags.ErrMarshal:
		// A malformed configuration struct, rather than bad input.
		panic(err)

	case flags.ErrCommandRequired, flags.ErrHelp:
		if flagErr.Type == flags.ErrCommandRequired || parser.Options&flags.PrintErrors == 0 {
			os.Stderr.WriteString("\n")
			parser.WriteHelp(os.Stderr)
		}
		fmt.Fprintf(os.Stderr, "\ngeoload %s, built at %s.\n", Version, BuildDate)
		os.Exit(1)

	default:
		// go-flags has already printed the input error.
		os.Exit(1)
	}
}

// AddPrintConfigCmd to the Parser. The "print-config" command writes the
// combined configuration of INI file, environment and flags in INI format,
// which may be saved as a starting point for a configuration file.
func AddPrintConfigCmd(parser *flags.Parser, configName string) {
	_, _ = parser.AddCommand("print-config", "Print combined configuration and exit", `
print-config parses the combined configuration from `+configName+`, flags,
and environment variables, and then writes the configuration to stdout in INI format.
The file is searched for in $`+ConfigFileEnv+`, the working directory,
~/.config/geoload, $`+ConfigRootEnv+` and /etc/geoload.
`, &printConfig{parser: parser})
}

type printConfig struct {
	parser *flags.Parser
}

func (p *printConfig) Execute([]string) error {
	if ConfigFile != "" {
		fmt.Fprintf(os.Stdout, "; Read from %s.\n", ConfigFile)
	}
	flags.NewIniParser(p.parser).Write(os.Stdout,
		flags.IniIncludeComments|flags.IniCommentDefaults|flags.IniIncludeDefaults)
	return nil
}
