// Package password resolves the password to inject from its configured
// source and scrubs the cleartext from the retained argument vector.
package password

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

const (
	envPrefix  = "env:"
	filePrefix = "file:"
)

// Resolve turns a -p argument into the password to inject.
//
// Three forms are accepted: a literal, "env:NAME" reading the named
// environment variable, and "file:PATH" reading the first
// whitespace-delimited token of the file's first line.
func Resolve(arg string) (string, error) {
	switch {
	case strings.HasPrefix(arg, envPrefix):
		name := arg[len(envPrefix):]
		val, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("environment variable %q is not set", name)
		}
		return val, nil

	case strings.HasPrefix(arg, filePrefix):
		return fromFile(arg[len(filePrefix):])

	default:
		return arg, nil
	}
}

func fromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return "", nil
	}
	fields := strings.Fields(sc.Text())
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], nil
}

// MaskArgs overwrites password values in the retained argument vector with
// asterisks so usage output and diagnostics never echo the cleartext. Both
// "-p value" / "--password value" and "--password=value" spellings are
// handled.
func MaskArgs(args []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-p" || arg == "--password":
			if i+1 < len(args) {
				args[i+1] = mask(args[i+1])
				i++
			}
		case strings.HasPrefix(arg, "--password="):
			args[i] = "--password=" + mask(arg[len("--password="):])
		case strings.HasPrefix(arg, "-p") && len(arg) > 2:
			args[i] = "-p" + mask(arg[2:])
		}
	}
}

func mask(s string) string {
	return strings.Repeat("*", len(s))
}
