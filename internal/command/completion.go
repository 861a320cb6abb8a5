// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/labctl/labctl/internal/meta"
)

const bashCompletionScript = `# bash completion for labctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_labctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "labs discover pricing freetier costreport start stop sessions progress checkpoint complete cert export import resources orphans cleanup validate costs rules compliance completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
  local common="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t --tldr"

    # Determine if an optional LabDir (first non-flag after subcommand) has
		# already been provided
    local have_labdir=0
    local idx=2
    while [[ $idx -lt ${#COMP_WORDS[@]} ]]; do
        local w=${COMP_WORDS[$idx]}
        if [[ $w != -* ]]; then
            have_labdir=1
            break
        fi
        ((idx++))
    done

    case "$cmd" in
    labs|discover|freetier|pricing|sessions|cert)
      local opts="$common --schema"
            ;;
        start)
      local opts="$common --budget --email --profile --region -r"
            ;;
        progress)
      local opts="$common --schema --step --done --notes"
            ;;
        checkpoint|complete|validate|orphans)
      local opts="$common --schema --profile --region -r"
            ;;
        resources)
      local opts="$common --schema --profile --region -r --session"
            ;;
        cleanup)
      local opts="$common --schema --diff --diff_filter --profile --region -r"
            ;;
        costs)
      local opts="$common --schema --budgets --days -d --forecast --profile --region -r --session"
            ;;
        rules)
      local opts="$common --schema --rule --approved-types"
            ;;
        compliance)
      local opts="$common --schema --rules --profile --region -r"
            ;;
        export|import)
            local opts="$common --passphrase -p"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

  # If current token starts with '-', or we've already consumed LabDir, offer flags
  if [[ "$cur" == -* || $have_labdir -eq 1 ]]; then
    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
  fi

  # Otherwise, we're on the (optional) LabDir positional -- complete directories
  COMPREPLY=( $(compgen -o dirnames -- "$cur") )
  return 0
}

complete -F _labctl labctl
`

const zshCompletionScript = `#compdef labctl

_labctl() {
  local -a cmds
  cmds=(
    'labs:lab catalog query'
    'discover:rescan the lab root and rebuild the catalog'
    'pricing:per-lab cost breakdown'
    'freetier:monthly Free Tier allowances'
    'costreport:catalog-wide cost report'
    'start:start a lab session'
    'stop:stop a running lab session'
    'sessions:session store query'
    'progress:show or update session progress'
    'checkpoint:validate a lab checkpoint'
    'complete:verify and record lab completion'
    'cert:certification progress by category'
    'export:export sessions to an encrypted archive'
    'import:import sessions from an encrypted archive'
    'resources:live lab resource inventory'
    'orphans:resources not owned by an active session'
    'cleanup:run and verify a session cleanup'
    'validate:health-check a session'
    'costs:actual session spend'
    'rules:evaluate compliance rules locally'
    'compliance:deployed Config rule compliance'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'labctl commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    start)
      _arguments -C \
        $common \
        '--budget[monthly budget alert amount]:amount' \
        '--email[budget notification email]:email' \
        '(-r --region)'{-r,--region}'[AWS region]:region' \
        '--profile[AWS profile]:profile' \
        '::LabDir:_directories'
      ;;
    progress)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--step[step to update]:step' \
        '--done[mark completed]' \
        '--notes[step notes]:notes' \
        '::LabDir:_directories'
      ;;
    cleanup)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--diff[show pre/post snapshot diff]' \
        '--diff_filter[keys to exclude from diff]:keys' \
        '(-r --region)'{-r,--region}'[AWS region]:region' \
        '--profile[AWS profile]:profile' \
        '::LabDir:_directories'
      ;;
    costs)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--budgets[list budget alerts]' \
        '(-d --days)'{-d,--days}'[lookback window]:days' \
        '--forecast[project spend ahead]:days' \
        '--session[session id]:session' \
        '(-r --region)'{-r,--region}'[AWS region]:region' \
        '--profile[AWS profile]:profile' \
        '::LabDir:_directories'
      ;;
    rules)
      _arguments -C \
        $common \
        '--schema[dump schema]' \
        '--rule[rule to evaluate]:rule' \
        '--approved-types[approved EC2 instance types]:types' \
        '::document:_files'
      ;;
    export|import)
      _arguments -C \
        $common \
        '(-p --passphrase)'{-p,--passphrase}'[archive passphrase]' \
        '::LabDir:_directories'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common '*:directory:_directories'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys
# is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _labctl labctl labctl
`

func completionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(os.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(os.Stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			fmt.Fprint(os.Stdout, zshCompletionScript)
		case strings.HasSuffix(sh, "bash"):
			fmt.Fprint(os.Stdout, bashCompletionScript)
		default:
			fmt.Fprintln(os.Stderr, "usage: labctl completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func completionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "labctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: completionCommandAction,
	}
}
