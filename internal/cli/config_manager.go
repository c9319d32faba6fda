package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	survey "github.com/AlecAivazis/survey/v2"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// provisionFile mirrors the YAML layout of the provisioning config. The
// wizard edits this shape directly so untouched keys round-trip as written.
type provisionFile struct {
	Solr struct {
		Scheme   string `yaml:"scheme"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		BasePath string `yaml:"base_path"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"solr"`
	Tenant struct {
		ID string `yaml:"id"`
	} `yaml:"tenant"`
	ConfigSet struct {
		BaseName    string `yaml:"base_name"`
		ArchivePath string `yaml:"archive_path"`
	} `yaml:"configset"`
	Collection struct {
		BaseName          string `yaml:"base_name"`
		NumShards         int    `yaml:"num_shards"`
		ReplicationFactor int    `yaml:"replication_factor"`
	} `yaml:"collection"`
	Provision struct {
		PropagationFailureIsFatal bool `yaml:"propagation_failure_is_fatal"`
		CreateRetries             int  `yaml:"create_retries"`
		CreateRetryBaseSeconds    int  `yaml:"create_retry_base_seconds"`
		PropagationPauseSeconds   int  `yaml:"propagation_pause_seconds"`
	} `yaml:"provision"`
	Timeouts struct {
		ReadSeconds  int `yaml:"read_seconds"`
		WriteSeconds int `yaml:"write_seconds"`
	} `yaml:"timeouts"`
}

var stdinReader = bufio.NewReader(os.Stdin)
var ansiEscapeRE = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
var caretEscapeRE = regexp.MustCompile(`\^\[\[[0-9;?]*[ -/]*[@-~]`)
var tenantIDUnsafeRE = regexp.MustCompile(`[^a-z0-9_-]+`)
var underscoreCollapseRE = regexp.MustCompile(`_+`)

func newConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Interactive config manager",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigManager(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "configs/solr-provision.yaml", "Path to provisioning config file")
	return cmd
}

func runConfigManager(configPath string) error {
	fmt.Println()
	fmt.Println("\033[1msolr-tenant-provision — Config Manager\033[0m")
	fmt.Println("──────────────────────────────────────────────────")

	for {
		configExists := fileExists(configPath)

		options := []string{}
		actions := map[string]func() error{}

		if configExists {
			label := fmt.Sprintf("[provision] Edit %s", filepath.Base(configPath))
			options = append(options, label)
			actions[label] = func() error { return upsertConfig(configPath, true, "") }
		} else {
			label := fmt.Sprintf("[+provision] Create %s", filepath.Base(configPath))
			options = append(options, label)
			actions[label] = func() error { return upsertConfig(configPath, false, "") }
		}

		drafts := listConfigDrafts(configPath)
		for _, d := range drafts {
			draftPath := d
			resumeLabel := fmt.Sprintf("\033[33m[draft]\033[0m     Resume %s", filepath.Base(draftPath))
			deleteLabel := fmt.Sprintf("\033[31m[draft]\033[0m     Delete %s", filepath.Base(draftPath))
			options = append(options, resumeLabel, deleteLabel)
			actions[resumeLabel] = func() error {
				return upsertConfig(configPath, configExists, draftPath)
			}
			actions[deleteLabel] = func() error {
				if err := os.Remove(draftPath); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
				fmt.Printf("  \033[32m✓ Draft deleted:\033[0m %s\n\n", draftPath)
				return nil
			}
		}

		options = append(options, "Exit")

		var choice string
		prompt := &survey.Select{
			Message: "Select:",
			Options: options,
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			return nil // Ctrl+C / EOF
		}
		// Clear delayed terminal control responses left by survey rendering.
		drainStdin()
		if choice == "Exit" {
			fmt.Println()
			return nil
		}
		if fn := actions[choice]; fn != nil {
			if err := fn(); err != nil {
				return err
			}
		}
	}
}

func upsertConfig(path string, edit bool, draftPath string) error {
	cfg := provisionFile{}
	if draftPath != "" {
		if err := loadYAML(draftPath, &cfg); err != nil {
			return fmt.Errorf("load draft %s: %w", draftPath, err)
		}
		fmt.Printf("\n\033[33m⚠ Resuming draft:\033[0m %s\n", filepath.Base(draftPath))
	} else if edit {
		if err := loadYAML(path, &cfg); err != nil {
			return err
		}
	} else {
		if err := loadYAML("configs/solr-provision.example.yaml", &cfg); err != nil {
			return err
		}
		applySmartDefaults(&cfg)
	}

	fmt.Printf("\n%s: %s\n", map[bool]string{true: "Edit", false: "Create"}[edit], filepath.Base(path))
	fmt.Println(strings.Repeat("─", 40))
	stopInterruptHandler := startConfigDraftInterruptHandler(path, func() ([]byte, bool) {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, false
		}
		return data, true
	})
	defer stopInterruptHandler()

	cfg.Solr.Scheme = askScheme("SOLR scheme", cfg.Solr.Scheme)
	cfg.Solr.Host = askString("SOLR host", cfg.Solr.Host)
	cfg.Solr.Port = askInt("SOLR port", cfg.Solr.Port)
	cfg.Solr.BasePath = askString("SOLR base path", cfg.Solr.BasePath)
	cfg.Solr.Username = askString("SOLR username (empty for no auth)", cfg.Solr.Username)
	if cfg.Solr.Username != "" {
		cfg.Solr.Password = askString("SOLR password", cfg.Solr.Password)
	}

	cfg.Tenant.ID = normalizeTenantID(askString("Tenant id", cfg.Tenant.ID))

	cfg.ConfigSet.BaseName = askString("ConfigSet base name (_default for stock SOLR config)", cfg.ConfigSet.BaseName)
	if cfg.ConfigSet.BaseName != "_default" {
		cfg.ConfigSet.ArchivePath = askString("ConfigSet archive path (zip)", cfg.ConfigSet.ArchivePath)
	}

	cfg.Collection.BaseName = askString("Collection base name", cfg.Collection.BaseName)
	cfg.Collection.NumShards = askInt("Collection shards", cfg.Collection.NumShards)
	cfg.Collection.ReplicationFactor = askInt("Collection replication factor", cfg.Collection.ReplicationFactor)

	if askBool("Customize retry/timeout settings (advanced)", false) {
		cfg.Provision.PropagationFailureIsFatal = askBool("Treat propagation trigger failure as fatal", cfg.Provision.PropagationFailureIsFatal)
		cfg.Provision.CreateRetries = askInt("Collection create retries", cfg.Provision.CreateRetries)
		cfg.Provision.CreateRetryBaseSeconds = askInt("Collection create retry base seconds", cfg.Provision.CreateRetryBaseSeconds)
		cfg.Provision.PropagationPauseSeconds = askInt("Propagation pause seconds", cfg.Provision.PropagationPauseSeconds)
		cfg.Timeouts.ReadSeconds = askInt("Read timeout seconds", cfg.Timeouts.ReadSeconds)
		cfg.Timeouts.WriteSeconds = askInt("Write timeout seconds", cfg.Timeouts.WriteSeconds)
	}

	if err := saveYAML(path, cfg); err != nil {
		return err
	}
	_ = cleanupConfigDrafts(path)
	fmt.Printf("  \033[32m✓ Saved:\033[0m %s\n\n", path)
	return nil
}

func askString(msg, def string) string {
	def = sanitizeSuggestion(def)
	prompt := ""
	if def != "" {
		prompt = fmt.Sprintf("  %s [\033[36m%s\033[0m]: ", msg, def)
	} else {
		prompt = fmt.Sprintf("  %s: ", msg)
	}
	s := readLineClean(prompt)
	if s == "" {
		return def
	}
	return s
}

func askScheme(msg, def string) string {
	def = strings.ToLower(strings.TrimSpace(def))
	if def == "" {
		def = "http"
	}
	for {
		raw := readLineClean(fmt.Sprintf("  %s [\033[36m%s\033[0m]: ", msg, def))
		if raw == "" {
			return def
		}
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "http" || raw == "https" {
			return raw
		}
		fmt.Println("  Invalid scheme. Options: http, https")
	}
}

func askInt(msg string, def int) int {
	for {
		raw := readLineClean(fmt.Sprintf("  %s [\033[36m%d\033[0m]: ", msg, def))
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err == nil {
			return v
		}
		fmt.Println("  Invalid number.")
	}
}

func askBool(msg string, def bool) bool {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	for {
		s := strings.ToLower(readLineClean(fmt.Sprintf("  %s %s: ", msg, hint)))
		switch s {
		case "":
			return def
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Println("  Please answer yes or no.")
	}
}

func readLineClean(prompt string) string {
	raw := readLineEditable(prompt)
	raw = ansiEscapeRE.ReplaceAllString(raw, "")
	raw = caretEscapeRE.ReplaceAllString(raw, "")
	raw = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(raw)
}

func readLineEditable(prompt string) string {
	rl, err := readline.NewEx(&readline.Config{Prompt: prompt})
	if err == nil {
		cleanup := func() {
			_ = rl.Close()
			// Keep bufio reader in sync after readline consumed stdin bytes.
			stdinReader.Reset(os.Stdin)
		}
		line, err := rl.Readline()
		if err == nil {
			cleanup()
			return line
		}
		if errors.Is(err, readline.ErrInterrupt) {
			// Important: restore terminal state before triggering interrupt handler,
			// because the handler may call os.Exit(0), which skips defers.
			cleanup()
			if p, findErr := os.FindProcess(os.Getpid()); findErr == nil {
				_ = p.Signal(os.Interrupt)
			}
			return ""
		}
		cleanup()
	}
	fmt.Print(prompt)
	raw, _ := stdinReader.ReadString('\n')
	return raw
}

func loadYAML(path string, out any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func saveYAML(path string, data any) error {
	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sanitizeSuggestion(in string) string {
	in = strings.TrimSpace(os.ExpandEnv(in))
	if strings.Contains(in, "${") {
		return ""
	}
	return in
}

func applySmartDefaults(cfg *provisionFile) {
	cfg.Solr.Host = sanitizeSuggestion(cfg.Solr.Host)
	cfg.Solr.Username = sanitizeSuggestion(cfg.Solr.Username)
	cfg.ConfigSet.ArchivePath = sanitizeSuggestion(cfg.ConfigSet.ArchivePath)
	if v := os.Getenv("STP_SOLR_HOST"); v != "" {
		cfg.Solr.Host = v
	}
	if v := os.Getenv("STP_TENANT_ID"); v != "" {
		cfg.Tenant.ID = normalizeTenantID(v)
	}
}

// normalizeTenantID lowercases and replaces unsafe characters so typed ids
// always pass config validation.
func normalizeTenantID(in string) string {
	s := strings.ToLower(strings.TrimSpace(in))
	s = tenantIDUnsafeRE.ReplaceAllString(s, "_")
	s = underscoreCollapseRE.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	return s
}

func cleanupConfigDrafts(targetPath string) error {
	for _, p := range listConfigDrafts(targetPath) {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func configDraftPath(targetPath string) string {
	base := filepath.Base(targetPath)
	return filepath.Join("tmp", fmt.Sprintf("%s.draft.yaml", base))
}

func listConfigDrafts(targetPath string) []string {
	base := filepath.Base(targetPath)
	pattern := filepath.Join("tmp", fmt.Sprintf("%s.draft*.yaml", base))
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		ii, errI := os.Stat(matches[i])
		jj, errJ := os.Stat(matches[j])
		if errI != nil || errJ != nil {
			return matches[i] > matches[j]
		}
		return ii.ModTime().After(jj.ModTime())
	})
	return matches
}

func startConfigDraftInterruptHandler(targetPath string, dataFn func() ([]byte, bool)) func() {
	localSigCh := make(chan os.Signal, 1)
	signal.Notify(localSigCh, os.Interrupt)
	go func() {
		<-localSigCh
		data, ok := dataFn()
		if ok {
			if draftPath, err := writeConfigDraft(targetPath, data); err == nil {
				fmt.Printf("\n\033[33m⚠ Interrupted\033[0m\n")
				fmt.Printf("  Draft saved: %s\n", draftPath)
			}
		}
		fmt.Println("Cancelled.")
		restoreTTYOnExit()
		os.Exit(0)
	}()
	return func() {
		signal.Stop(localSigCh)
	}
}

func writeConfigDraft(targetPath string, data []byte) (string, error) {
	if err := os.MkdirAll("tmp", 0o700); err != nil {
		return "", err
	}
	draftPath := configDraftPath(targetPath)
	if err := os.WriteFile(draftPath, data, 0o600); err != nil {
		return "", err
	}
	return draftPath, nil
}
