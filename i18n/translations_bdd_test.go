package i18n

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// Translations BDD Test Context
type TranslationsBDDTestContext struct {
	bundles []Bundle
	table   ResourceTable
	engine  *Engine
	counts  []int
}

func (ctx *TranslationsBDDTestContext) reset() {
	ctx.bundles = nil
	ctx.table = nil
	ctx.engine = nil
	ctx.counts = nil
}

func (ctx *TranslationsBDDTestContext) aBundleWithMessage(pod, lang, key, value string) error {
	b, err := NewBundle(pod, map[string]map[string]string{lang: {key: value}})
	if err != nil {
		return err
	}
	ctx.bundles = append(ctx.bundles, b)
	return nil
}

func (ctx *TranslationsBDDTestContext) theResourceTableIsBuiltForLanguages(langs string) error {
	ctx.table = BuildResourceTable(ctx.bundles, strings.Split(langs, ","))
	return nil
}

func (ctx *TranslationsBDDTestContext) theEngineStartsIn(lang string) error {
	ctx.engine = New(ctx.table, lang)
	return nil
}

func (ctx *TranslationsBDDTestContext) listenersWatchTheLanguage(n int) error {
	ctx.counts = make([]int, n)
	for i := range ctx.counts {
		ctx.engine.OnLanguageChanged(func(string) { ctx.counts[i]++ })
	}
	return nil
}

func (ctx *TranslationsBDDTestContext) theLanguageIsChangedTo(lang string) error {
	ctx.engine.ChangeLanguage(lang)
	return nil
}

func (ctx *TranslationsBDDTestContext) theTableShouldContainMessages(lang string, n int) error {
	if got := len(ctx.table[lang]); got != n {
		return fmt.Errorf("expected %d %s messages, got %d", n, lang, got)
	}
	return nil
}

func (ctx *TranslationsBDDTestContext) theMessageShouldBe(lang, key, want string) error {
	if got := ctx.table[lang][key]; got != want {
		return fmt.Errorf("expected %s %q to be %q, got %q", lang, key, want, got)
	}
	return nil
}

func (ctx *TranslationsBDDTestContext) translatingShouldGive(key, want string) error {
	if got := ctx.engine.T(key); got != want {
		return fmt.Errorf("expected T(%q) = %q, got %q", key, want, got)
	}
	return nil
}

func (ctx *TranslationsBDDTestContext) everyListenerShouldHaveBeenNotified(n int) error {
	for i, c := range ctx.counts {
		if c != n {
			return fmt.Errorf("listener %d notified %d times, expected %d", i, c, n)
		}
	}
	return nil
}

// TestTranslationsBDD runs the BDD scenarios for translation aggregation
func TestTranslationsBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			testCtx := &TranslationsBDDTestContext{}
			ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
				testCtx.reset()
				return c, nil
			})

			ctx.Given(`^a bundle from "([^"]*)" with "([^"]*)" message "([^"]*)" = "([^"]*)"$`, testCtx.aBundleWithMessage)
			ctx.When(`^the resource table is built for languages "([^"]*)"$`, testCtx.theResourceTableIsBuiltForLanguages)
			ctx.When(`^the engine starts in "([^"]*)"$`, testCtx.theEngineStartsIn)
			ctx.When(`^(\d+) listeners watch the language$`, testCtx.listenersWatchTheLanguage)
			ctx.When(`^the language is changed to "([^"]*)"$`, testCtx.theLanguageIsChangedTo)
			ctx.Then(`^the "([^"]*)" table should contain (\d+) messages$`, testCtx.theTableShouldContainMessages)
			ctx.Then(`^the "([^"]*)" message "([^"]*)" should be "([^"]*)"$`, testCtx.theMessageShouldBe)
			ctx.Then(`^translating "([^"]*)" should give "([^"]*)"$`, testCtx.translatingShouldGive)
			ctx.Then(`^every listener should have been notified (\d+) times?$`, testCtx.everyListenerShouldHaveBeenNotified)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
