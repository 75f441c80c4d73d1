package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/resolvebot/resolvebot/internal/diffreduce"
	"github.com/resolvebot/resolvebot/internal/git"
	"github.com/resolvebot/resolvebot/internal/githubapi"
	"github.com/resolvebot/resolvebot/internal/issuectx"
	"github.com/resolvebot/resolvebot/internal/llm"
)

// resolveRepo determines the owner/repo pair: explicit config wins, then
// the origin remote of the current directory.
func resolveRepo() (owner, repo string, err error) {
	owner = viper.GetString("github.owner")
	repo = viper.GetString("github.repo")
	if owner != "" && repo != "" {
		return owner, repo, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", "", err
	}
	remoteURL, err := git.NewClient().RemoteURL(cwd)
	if err != nil || remoteURL == "" {
		return "", "", fmt.Errorf("github.owner/github.repo not configured and no origin remote found")
	}
	return git.ExtractOwnerRepo(remoteURL)
}

func newGitHubClient(ctx context.Context) (githubapi.Client, string, error) {
	owner, repo, err := resolveRepo()
	if err != nil {
		return nil, "", err
	}
	token := viper.GetString("github.token")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	return githubapi.NewClient(ctx, owner, repo, token), owner + "/" + repo, nil
}

func newCollector(gh githubapi.Client) *issuectx.Collector {
	return issuectx.NewCollector(gh, ui, issuectx.Options{
		RedactPattern: viper.GetString("context.redact_pattern"),
		Diff: diffreduce.Options{
			TotalCap:   viper.GetInt("diff.total_cap"),
			PerFileCap: viper.GetInt("diff.per_file_cap"),
		},
	})
}

func newLLMClient() (llm.Client, error) {
	return llm.New(viper.GetString("llm.model"), viper.GetString("llm.api_key"))
}
