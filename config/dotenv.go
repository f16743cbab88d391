package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// DotEnvFile is the name of the optional secrets file read at startup.
const DotEnvFile = ".env"

// DefaultDotEnvPath returns the .env path in the current working directory.
func DefaultDotEnvPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DotEnvFile
	}
	return filepath.Join(cwd, DotEnvFile)
}

// LoadDotEnv reads KEY=VALUE pairs from path and exports every key that is not
// already present in the process environment. Variables set by the container
// runtime or the shell always win over the file.
//
// A missing file is not an error and changes nothing. Lines godotenv cannot
// parse are dropped. It returns the number of variables it set.
func LoadDotEnv(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	pairs, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		pairs = parseDotEnvLines(data)
	}

	set := 0
	for key, value := range pairs {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			continue
		}
		set++
	}
	return set, nil
}

// parseDotEnvLines parses each line on its own so one bad line does not
// discard the rest of the file.
func parseDotEnvLines(data []byte) map[string]string {
	pairs := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		parsed, err := godotenv.UnmarshalBytes(line)
		if err != nil {
			continue
		}
		for k, v := range parsed {
			pairs[k] = v
		}
	}
	return pairs
}
