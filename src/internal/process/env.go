package process

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"github.com/enderiumcraft/rbclauncher/src/internal/errs"
)

// LoadEnv reads KEY=VALUE pairs for the game process from a dotenv file.
// A missing file yields no variables.
func LoadEnv(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, errs.Config("load game environment", fmt.Errorf("failed to read %s: %w", path, err))
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, vars[k]))
	}
	return env, nil
}
