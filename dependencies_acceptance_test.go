package recordsvc_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func TestModuleDependencies_Present(t *testing.T) {
	for _, module := range []string{
		"gorm.io/gorm",
		"gorm.io/driver/postgres",
		"github.com/glebarez/sqlite",
		"github.com/knadh/koanf/v2",
		"github.com/simp-lee/logger",
		"github.com/gin-contrib/cors",
		"github.com/graph-gophers/dataloader",
		"github.com/golang-migrate/migrate/v4",
		"github.com/nats-io/nats.go",
		"golang.org/x/time",
	} {
		t.Run(module, func(t *testing.T) {
			testModulePresence(t, module)
		})
	}
}

func TestQueryBuilding_NoFormattedSQL(t *testing.T) {
	t.Run("happy_repo_has_no_formatted_sql", func(t *testing.T) {
		matches, err := findFormattedSQL("internal")
		if err != nil {
			t.Fatalf("scan repository: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected SQL to be built with bound parameters, found fmt.Sprintf SQL in: %v", matches)
		}
	})

	t.Run("error_fixture_with_formatted_sql_is_detected", func(t *testing.T) {
		fixture := `package record
func q(col string) string { return fmt.Sprintf("SELECT * FROM records ORDER BY %s", col) }`
		if !hasFormattedSQL(fixture) {
			t.Fatal("expected formatted SQL to be detected in fixture")
		}
	})
}

func testModulePresence(t *testing.T, module string) {
	t.Helper()

	t.Run("happy_present_in_real_go_mod", func(t *testing.T) {
		goMod, err := os.ReadFile("go.mod")
		if err != nil {
			t.Fatalf("read go.mod: %v", err)
		}
		if !moduleRequired(string(goMod), module) {
			t.Fatalf("expected module %q to be present in go.mod", module)
		}
	})

	t.Run("error_missing_module_in_fixture", func(t *testing.T) {
		fixture := `module example.com/demo

go 1.25.0

require (
	github.com/stretchr/testify v1.11.1
)`
		if moduleRequired(fixture, module) {
			t.Fatalf("expected fixture to not contain module %q", module)
		}
	})
}

func moduleRequired(goModContent, module string) bool {
	re := regexp.MustCompile(`(?m)^\s*(require\s+)?` + regexp.QuoteMeta(module) + `\s+v\S+`)
	return re.MatchString(goModContent)
}

func findFormattedSQL(root string) ([]string, error) {
	matches := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "vendor" || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		b, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		if hasFormattedSQL(string(b)) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func hasFormattedSQL(content string) bool {
	re := regexp.MustCompile(`(?i)fmt\.Sprintf\(\s*"[^"]*\b(SELECT|WHERE|ORDER BY|UPDATE|DELETE FROM|INSERT INTO)\b`)
	return re.MatchString(content)
}
