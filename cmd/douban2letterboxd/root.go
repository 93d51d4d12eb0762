package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koizuka/douban2letterboxd/config"
	"github.com/koizuka/douban2letterboxd/douban"
	"github.com/koizuka/douban2letterboxd/letterboxd"
	"github.com/koizuka/douban2letterboxd/scraper"
)

const appName = "douban2letterboxd"

type flags struct {
	configPath string
	user       string
	cookie     string
	output     string
	maxPages   int
	baseURL    string
	chrome     bool
	headful    bool
	savePages  string
	bom        bool
	verbose    bool
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Export the watched movies of a Douban user as a Letterboxd import CSV.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			cfg = cfg.Merge(f.overrides(cmd))
			if err := prompt(bufio.NewReader(in), out, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, runOptions{
				Headless: !f.headful,
				Verbose:  f.verbose,
				Log:      scraper.ConsoleLogger{Out: out},
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	fl.StringVarP(&f.user, "user", "u", "", "Douban user id")
	fl.StringVar(&f.cookie, "cookie", "", "Cookie header of a logged-in Douban session")
	fl.StringVarP(&f.output, "output", "o", letterboxd.DefaultFilename, "output CSV file")
	fl.IntVar(&f.maxPages, "max-pages", douban.DefaultMaxPages, "maximum number of collection pages to read")
	fl.StringVar(&f.baseURL, "base-url", douban.DefaultBaseURL, "Douban movie site")
	fl.BoolVar(&f.chrome, "chrome", false, "fetch pages with Chrome")
	fl.BoolVar(&f.headful, "headful", false, "show the Chrome window")
	fl.StringVar(&f.savePages, "save-pages", "", "directory to save fetched pages into")
	fl.BoolVar(&f.bom, "bom", false, "start the CSV with a UTF-8 byte order mark")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "print request and response headers")

	cmd.AddCommand(newInspectCmd(out))
	return cmd
}

// overrides returns the flags given explicitly on the command line.
func (f *flags) overrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	changed := cmd.Flags().Changed
	if changed("user") {
		o.User = &f.user
	}
	if changed("cookie") {
		o.Cookie = &f.cookie
	}
	if changed("output") {
		o.Output = &f.output
	}
	if changed("max-pages") {
		o.MaxPages = &f.maxPages
	}
	if changed("base-url") {
		o.BaseURL = &f.baseURL
	}
	if changed("chrome") {
		o.Chrome = &f.chrome
	}
	if changed("save-pages") {
		o.SavePages = &f.savePages
	}
	if changed("bom") {
		o.BOM = &f.bom
	}
	return o
}

// prompt asks for the user id and cookie when they are still missing.
// The output file is asked for together with them.
func prompt(r *bufio.Reader, out io.Writer, cfg *config.Config) error {
	if strings.TrimSpace(cfg.User) != "" && strings.TrimSpace(cfg.Cookie) != "" {
		return nil
	}

	read := func(label string) (string, error) {
		fmt.Fprint(out, label)
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	if strings.TrimSpace(cfg.User) == "" {
		v, err := read("请输入你的豆瓣用户ID: ")
		if err != nil {
			return err
		}
		cfg.User = v
	}
	if strings.TrimSpace(cfg.Cookie) == "" {
		v, err := read("请输入你的豆瓣Cookie: ")
		if err != nil {
			return err
		}
		cfg.Cookie = v
	}
	v, err := read(fmt.Sprintf("请输入导出文件名(默认为%s): ", letterboxd.DefaultFilename))
	if err != nil {
		return err
	}
	if v != "" {
		cfg.Output = v
	}
	return nil
}

func newSession(cfg config.Config, verbose bool, log scraper.Logger) *scraper.Session {
	session := scraper.NewSession(cfg.User, log)
	session.ShowRequestHeader = verbose
	session.ShowResponseHeader = verbose
	if cfg.SavePages != "" {
		session.SaveToFile = true
		session.FilePrefix = filepath.Clean(cfg.SavePages) + string(os.PathSeparator)
	}
	return session
}

// newFetcher returns the plain HTTP session, or a Chrome session when cfg asks for one.
// The returned cancel func must always be called.
func newFetcher(cfg config.Config, site douban.Site, opt runOptions) (douban.Fetcher, func(), error) {
	session := newSession(cfg, opt.Verbose, opt.Log)
	site.ApplyHeaders(session.Header)
	cookies := scraper.ParseCookieString(cfg.Cookie)

	if !cfg.Chrome {
		if err := site.Authorize(session, cookies); err != nil {
			return nil, func() {}, err
		}
		return session, func() {}, nil
	}

	chrome, cancel, err := session.NewChromeOpt(scraper.NewChromeOptions{Headless: opt.Headless})
	if err != nil {
		return nil, cancel, fmt.Errorf("failed to start chrome: %w", err)
	}
	if err := site.Authorize(chrome, cookies); err != nil {
		return nil, cancel, err
	}
	return chrome, cancel, nil
}

type runOptions struct {
	Headless bool
	Verbose  bool
	Log      scraper.Logger
	Delay    douban.DelayFunc // nil for the default random pause
}

func run(ctx context.Context, cfg config.Config, opt runOptions) error {
	log := opt.Log
	site := douban.Site{BaseURL: cfg.BaseURL, User: cfg.User}
	fetcher, cancel, err := newFetcher(cfg, site, opt)
	defer cancel()
	if err != nil {
		return err
	}

	harvester := douban.NewHarvester(fetcher, site, log)
	harvester.MaxPages = cfg.MaxPages
	if opt.Delay != nil {
		harvester.Delay = opt.Delay
	}

	log.Printf("开始获取 %s 看过的电影...", cfg.User)
	movies := harvester.Harvest(ctx)

	err = letterboxd.Export(cfg.Output, letterboxd.Entries(movies), letterboxd.WriteOption{BOM: cfg.BOM})
	switch {
	case errors.Is(err, letterboxd.ErrNothingToExport):
		log.Printf("%v", err)
	case err != nil:
		return err
	default:
		log.Printf("已导出 %d 条数据到 %s", len(movies), cfg.Output)
	}
	log.Printf("处理完成!")
	return nil
}
