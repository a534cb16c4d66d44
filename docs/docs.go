//go:build docs

package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra/doc"

	"github.com/maxgio92/wachy/internal/config"
	"github.com/maxgio92/wachy/pkg/cmd"
)

const (
	docsDir            = "docs"
	fileTemplateHeader = ``
	templateMarker     = "{{ .CLI_REFERENCE }}"
)

var (
	filePrepender = func(filename string) string {
		if fileTemplateHeader == "" {
			return ""
		}
		title := strings.TrimPrefix(
			strings.TrimSuffix(strings.ReplaceAll(filename, "_", " "), ".md"),
			fmt.Sprintf("%s/", docsDir),
		)
		return fmt.Sprintf(fileTemplateHeader, title)
	}
	linkHandler = func(filename string) string {
		if filename == config.CmdName+".md" {
			return "README.md"
		}

		return path.Join("docs", filename)
	}
)

func main() {
	cmdDocsPath := path.Join(docsDir, config.CmdName+".md")

	opts := cmd.NewCommonOptions(
		cmd.WithLogger(log.New(os.Stderr).Level(log.InfoLevel)),
	)

	if err := doc.GenMarkdownTreeCustom(
		cmd.NewRootCmd(opts),
		docsDir,
		filePrepender,
		linkHandler,
	); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	readmeBytes, err := os.ReadFile("README.md.tpl")
	if err != nil {
		fmt.Println("failed to read README template:", err)
		os.Exit(1)
	}
	readme := string(readmeBytes)

	cmdDocsBytes, err := os.ReadFile(cmdDocsPath)
	if err != nil {
		fmt.Println("failed to read CLI doc README:", err)
		os.Exit(1)
	}
	cmdDocs := string(cmdDocsBytes)

	finalReadme := strings.Replace(readme, templateMarker, cmdDocs, 1)

	if err := os.WriteFile("README.md", []byte(finalReadme), 0644); err != nil {
		fmt.Println("failed to write final README:", err)
		os.Exit(1)
	}
}
