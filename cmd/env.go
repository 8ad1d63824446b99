package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gamelog/catalog-cli/internal/cache"
	"github.com/gamelog/catalog-cli/internal/config"
	"github.com/gamelog/catalog-cli/internal/consensus"
	"github.com/gamelog/catalog-cli/internal/diagnose"
	"github.com/gamelog/catalog-cli/internal/source"
)

// runEnv bundles the shared state the tag/resolve commands need.
type runEnv struct {
	store   *cache.Store
	sources map[string]source.Capability
}

func (e *runEnv) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
}

// initSources builds the configured provider clients behind the response
// cache.
func initSources(c *config.Config) (*runEnv, error) {
	store, err := cache.Open(c.Cache.Path, time.Duration(c.Cache.TTLHours)*time.Hour)
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}

	raw := map[string]source.Capability{}
	for _, name := range c.Diagnose.Sources {
		switch name {
		case "steam":
			raw[name] = source.NewSteam(source.WithSteamBaseURL(c.Steam.BaseURL))
		case "rawg":
			raw[name] = source.NewRAWG(c.RAWG.Key, source.WithRAWGBaseURL(c.RAWG.BaseURL))
		case "igdb":
			raw[name] = source.NewIGDB(c.IGDB.ClientID, c.IGDB.Token,
				source.WithIGDBBaseURL(c.IGDB.BaseURL))
		case "hltb":
			raw[name] = source.NewHLTB(source.WithHLTBBaseURL(c.HLTB.BaseURL))
		case "wikidata":
			raw[name] = source.NewWikidata(
				source.WithWikidataBaseURL(c.Wikidata.BaseURL),
				source.WithWikidataSPARQLBaseURL(c.Wikidata.SPARQLURL))
		default:
			store.Close()
			return nil, eris.Errorf("unknown source %q", name)
		}
	}

	cached := make(map[string]source.Capability, len(raw))
	for name, client := range raw {
		cached[name] = source.Cached(client, store)
	}

	return &runEnv{store: store, sources: cached}, nil
}

func consensusConfig(c *config.Config) consensus.Config {
	cc := consensus.DefaultConfig()
	cc.TitleScoreThreshold = c.Consensus.TitleThreshold
	cc.YearTolerance = c.Consensus.YearTolerance
	cc.MinSources = c.Consensus.MinSources
	return cc
}

func diagnoseConfig(c *config.Config) diagnose.Config {
	return diagnose.Config{
		Consensus:   consensusConfig(c),
		Sources:     c.Diagnose.Sources,
		Parallelism: c.Diagnose.Parallelism,
	}
}
