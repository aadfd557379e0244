// Package batch regenerates the language file cache.
//
// Two operations run sequentially, one remote call at a time:
//
//   - GenerateApplicationLanguageFiles fetches the PHP language file of every
//     configured (application, language) pair.
//   - GenerateAppletLanguageXMLFiles lists the languages of every registered
//     applet and fetches its XML language file per language.
//
// The first failure aborts the operation. Files written before the failure
// stay on disk.
package batch

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/minios-linux/langcache/apiclient"
	"github.com/minios-linux/langcache/cachefile"
	"github.com/minios-linux/langcache/config"
	"github.com/minios-linux/langcache/langmeta"
)

// DefaultApplets is the built-in applet registry (directory → applet id).
var DefaultApplets = config.Applets{
	{Directory: "memberapplet", ID: "JSM2_MemberApplet"},
}

// ConfigurationError reports an applet for which the API lists no languages.
type ConfigurationError struct {
	Applet string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("there are no available languages for the %s applet", e.Applet)
}

// Recorder is told about every written cache file and reports whether its
// content changed since the previous run.
type Recorder interface {
	Record(relPath string, content []byte) bool
}

// Options configures progress reporting.
type Options struct {
	// Log receives progress lines.
	Log func(format string, args ...any)
	// Success receives completion lines.
	Success func(format string, args ...any)
	// Debug receives per-request lines when set.
	Debug func(format string, args ...any)
	// Recorder, if set, is told about every written file.
	Recorder Recorder
	// Target and Mode override the request routing fields.
	Target string
	Mode   string
}

func (o *Options) log(format string, args ...any) {
	if o.Log != nil {
		o.Log(format, args...)
	}
}

func (o *Options) success(format string, args ...any) {
	if o.Success != nil {
		o.Success(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) debug(format string, args ...any) {
	if o.Debug != nil {
		o.Debug(format, args...)
	}
}

// Stats counts the files written by a Batch.
type Stats struct {
	Files     int
	Changed   int
	Unchanged int
	Bytes     int64
}

// Batch runs the generate operations against one client and cache layout.
type Batch struct {
	client apiclient.Client
	writer *cachefile.Writer
	layout cachefile.Layout
	opts   Options
	stats  Stats

	// written maps a cache subdirectory to the file names written in it.
	written map[string][]string
}

// New returns a Batch. A nil writer uses cachefile.NewWriter().
func New(client apiclient.Client, writer *cachefile.Writer, layout cachefile.Layout, opts Options) *Batch {
	if writer == nil {
		writer = cachefile.NewWriter()
	}
	return &Batch{
		client:  client,
		writer:  writer,
		layout:  layout,
		opts:    opts,
		written: make(map[string][]string),
	}
}

// Stats returns counters for the files written so far.
func (b *Batch) Stats() Stats {
	return b.stats
}

// Written returns, per cache subdirectory, the file names written so far.
func (b *Batch) Written() map[string][]string {
	return b.written
}

// Run generates the application files and then the applet files.
func (b *Batch) Run(ctx context.Context, apps config.Applications, applets config.Applets) error {
	if err := b.GenerateApplicationLanguageFiles(ctx, apps); err != nil {
		return err
	}
	return b.GenerateAppletLanguageXMLFiles(ctx, applets)
}

// ---------------------------------------------------------------------------
// Applications
// ---------------------------------------------------------------------------

// GenerateApplicationLanguageFiles writes <root>/cache/<app>/<lang>.php for
// every configured application and language, in configured order.
func (b *Batch) GenerateApplicationLanguageFiles(ctx context.Context, apps config.Applications) error {
	b.opts.log("Generating language files")

	for _, app := range apps {
		b.opts.log("[APPLICATION: %s]", app.ID)

		for _, lang := range app.Languages {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := b.processLanguage(ctx, app.ID, lang); err != nil {
				return fmt.Errorf("unable to generate language file for (%s/%s): %w", app.ID, lang, err)
			}
		}
	}

	b.opts.success("Language files generated.")
	return nil
}

func (b *Batch) processLanguage(ctx context.Context, app, lang string) error {
	dest, err := b.layout.ApplicationFile(app, lang)
	if err != nil {
		return err
	}

	size, changed, err := b.fetchAndPersist(ctx, apiclient.ActionLanguageFile, map[string]string{
		apiclient.ParamLanguage: lang,
	}, dest, true)
	if err != nil {
		return err
	}

	b.opts.success("  [LANGUAGE: %s] %s", langmeta.Label(lang), outcome(size, changed))
	return nil
}

// ---------------------------------------------------------------------------
// Applets
// ---------------------------------------------------------------------------

// GenerateAppletLanguageXMLFiles writes <root>/cache/flash/lang_<lang>.xml for
// every language of every registered applet.
func (b *Batch) GenerateAppletLanguageXMLFiles(ctx context.Context, applets config.Applets) error {
	b.opts.log("Getting applet language XMLs..")

	for _, applet := range applets {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.opts.log("Getting > %s (%s) language xmls..", applet.ID, applet.Directory)

		langs, err := b.appletLanguages(ctx, applet.ID)
		if err != nil {
			return err
		}
		if len(langs) == 0 {
			return &ConfigurationError{Applet: applet.ID}
		}
		b.opts.log(" - Available languages: %s", joinLabels(langs))

		for _, lang := range langs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := b.processAppletLanguage(ctx, applet.ID, lang); err != nil {
				return fmt.Errorf("unable to save applet (%s) language (%s) xml: %w", applet.ID, lang, err)
			}
		}

		b.opts.success("< %s (%s) language xml cached.", applet.ID, applet.Directory)
	}

	b.opts.success("Applet language XMLs generated.")
	return nil
}

func (b *Batch) appletLanguages(ctx context.Context, applet string) ([]string, error) {
	data, err := b.fetch(ctx, apiclient.ActionAppletLanguages, map[string]string{
		apiclient.ParamApplet: applet,
	})
	if err != nil {
		return nil, fmt.Errorf("getting languages for applet (%s) was unsuccessful: %w", applet, err)
	}

	langs, err := apiclient.DecodeList(data)
	if err != nil {
		return nil, fmt.Errorf("getting languages for applet (%s) was unsuccessful: %w", applet, err)
	}
	return langs, nil
}

func (b *Batch) processAppletLanguage(ctx context.Context, applet, lang string) error {
	dest, err := b.layout.AppletFile(lang)
	if err != nil {
		return err
	}

	size, changed, err := b.fetchAndPersist(ctx, apiclient.ActionAppletLanguageFile, map[string]string{
		apiclient.ParamApplet:   applet,
		apiclient.ParamLanguage: lang,
	}, dest, false)
	if err != nil {
		return err
	}

	b.opts.success("  saving %s was successful (%s)", b.layout.Rel(dest), outcome(size, changed))
	return nil
}

// ---------------------------------------------------------------------------
// Fetch, validate, persist
// ---------------------------------------------------------------------------

// fetch performs one call and returns the validated payload.
func (b *Batch) fetch(ctx context.Context, action apiclient.Action, params map[string]string) ([]byte, error) {
	req := apiclient.NewRequest(action, params)
	if b.opts.Target != "" {
		req.Target = b.opts.Target
	}
	if b.opts.Mode != "" {
		req.Mode = b.opts.Mode
	}
	b.opts.debug("call %s", req)

	resp, err := b.client.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	return apiclient.Validate(resp)
}

// fetchAndPersist fetches a text payload for action and writes it to dest.
// It is the one sequence shared by both resource kinds. With nonEmpty set an
// empty payload is refused before dest is touched; application files need
// content, applet XML files may be empty.
func (b *Batch) fetchAndPersist(ctx context.Context, action apiclient.Action, params map[string]string, dest string, nonEmpty bool) (int, bool, error) {
	data, err := b.fetch(ctx, action, params)
	if err != nil {
		return 0, false, err
	}

	text, err := apiclient.DecodeText(data)
	if err != nil {
		return 0, false, err
	}

	if nonEmpty && text == "" {
		return 0, false, &cachefile.CacheWriteError{Path: dest, Msg: "empty language file"}
	}

	content := []byte(text)
	if err := b.writer.Write(dest, content); err != nil {
		return 0, false, err
	}

	rel := b.layout.Rel(dest)
	dir, file := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	b.written[dir] = append(b.written[dir], file)

	changed := true
	if b.opts.Recorder != nil {
		changed = b.opts.Recorder.Record(rel, content)
	}

	b.stats.Files++
	b.stats.Bytes += int64(len(content))
	if changed {
		b.stats.Changed++
	} else {
		b.stats.Unchanged++
	}

	return len(content), changed, nil
}

func outcome(size int, changed bool) string {
	state := "unchanged"
	if changed {
		state = "changed"
	}
	return fmt.Sprintf("OK %s, %s", humanize.Bytes(uint64(size)), state)
}

func joinLabels(langs []string) string {
	labels := make([]string, len(langs))
	for i, l := range langs {
		labels[i] = langmeta.Label(l)
	}
	return strings.Join(labels, ", ")
}

// ExpectedFiles lists the cache files a complete run of apps is expected to
// write, relative to the cache directory. Applet files are not included since
// their languages are only known at run time.
func ExpectedFiles(apps config.Applications) []string {
	var files []string
	for _, app := range apps {
		for _, lang := range app.Languages {
			files = append(files, path.Join(app.ID, lang+cachefile.ExtPHP))
		}
	}
	return files
}
