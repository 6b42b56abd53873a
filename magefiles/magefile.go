//go:build mage

// Package main contains Mage build targets for paper-digest developer tooling.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "paper-digest"
	cmdPkg  = "./cmd/paper-digest"
)

// starterFiles are written by Init when missing.
var starterFiles = map[string]string{
	"paper-digest.yaml": `tag: LLM Safety
category_list: [cs.CL, cs.CR, cs.AI]
keyword_list:
  - jailbreak+LLM/大模型
  - backdoor
use_llm_for_filtering: false
use_llm_for_translation: false
max_results_per_category: 100
lark_batch_size: 10
template_id: ""
template_version_name: ""
model: qwen2.5:14b
base_url: http://localhost:11434/v1
paper_file: papers.json
paper_to_hunt_file: paper_to_hunt.md
schedule_time: "15:40"
llm_max_retries: 3
webhook_max_retries: 3
log_format: console
`,
	"paper_to_hunt.md": "Describe the papers you want to receive, one topic per paragraph.\n",
	filepath.Join(".secrets", ".gitkeep"): "",
}

// Init writes a starter configuration, hunt description and secrets directory.
func Init() error {
	for path, content := range starterFiles {
		if _, err := os.Stat(path); err == nil {
			fmt.Println("   exists ", path)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Println("   created", path)
	}
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Once builds the binary and runs a single digest with the local config.
func Once() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "run", "--mode", "once")
}

// Stats prints Go production/test LOC and documentation word count.
func Stats() error {
	var prod, test, words int
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); path != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		switch {
		case strings.HasSuffix(path, "_test.go"):
			test += nonBlankLines(data)
		case strings.HasSuffix(path, ".go"):
			prod += nonBlankLines(data)
		case strings.HasSuffix(path, ".md"):
			words += len(strings.Fields(string(data)))
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)
	fmt.Printf("Words (documentation):          %d\n", words)
	return nil
}

func nonBlankLines(data []byte) int {
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n
}
