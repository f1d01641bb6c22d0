// Package config loads the gateway's structured configuration file (spec
// §6) and builds the runtime objects - sources, cache stores, plugin
// pipelines, and the resulting EndpointGateway - that config.yaml describes.
package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-yaml"
	"github.com/redis/go-redis/v9"

	"github.com/n9te9/go-graphql-federation-gateway/cache"
	"github.com/n9te9/go-graphql-federation-gateway/gateway"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/cors"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/disableintrospection"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/graphiql"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/headermanipulation"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/httpcache"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/httpget"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/matchcontenttype"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/trusteddocuments"
	"github.com/n9te9/go-graphql-federation-gateway/plugins/vrl"
	"github.com/n9te9/go-graphql-federation-gateway/source"
)

// ServerConfig is the top-level "server" key.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggerConfig is the top-level "logger" key.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Filter string `yaml:"filter"`
}

// SourceConfig is one entry of the top-level "sources" list.
type SourceConfig struct {
	ID   string         `yaml:"id"`
	Type string         `yaml:"type"` // "graphql" | "federation"
	Spec SourceTypeSpec `yaml:"config"`
}

// SourceTypeSpec is the union of fields either source type recognizes;
// unused fields for a given Type are simply left zero.
type SourceTypeSpec struct {
	// "graphql" source
	Endpoint string `yaml:"endpoint"`

	// "federation" source
	SchemaFiles map[string]string `yaml:"schema_files"` // subgraph name -> SDL file path
	Hosts       map[string]string `yaml:"hosts"`         // subgraph name -> base URL
}

// PluginConfig is one entry of an endpoint's "plugins" list: a sum type
// discriminated by Type, mirroring the tagged-enum shape
// original_source's own plugin configs use.
type PluginConfig struct {
	Type string `yaml:"type"`

	GraphiQLTitle string `yaml:"title"`

	HTTPGetForbidMutations bool `yaml:"forbid_mutations"`

	CORS cors.Config `yaml:"cors"`

	// "disable_introspection" / "vrl": expr-lang source, compiled at build
	// time. DisableIntrospectionCondition is empty for an unconditional
	// rejection.
	DisableIntrospectionCondition string           `yaml:"condition"`
	VRLScripts                    VRLScriptsConfig `yaml:"scripts"`

	// "http_cache"
	CacheStore     string        `yaml:"cache_store"` // a CacheStoreConfig.ID
	CacheTTL       time.Duration `yaml:"ttl"`
	SessionKeyExpr string        `yaml:"session_key_expr"`

	// "trusted_documents"
	TrustedDocumentsStore   string `yaml:"documents_store"`
	TrustedDocumentsRequire bool   `yaml:"require"`

	// "header_manipulation"
	HeaderActions []headermanipulation.Action `yaml:"actions"`
}

// VRLScriptsConfig is the YAML shape of the vrl plugin's six per-hook
// scripts; each is expr-lang source, compiled at build time, empty meaning
// the hook is a no-op.
type VRLScriptsConfig struct {
	DownstreamHTTPRequest    string `yaml:"on_downstream_http_request"`
	DownstreamGraphQLRequest string `yaml:"on_downstream_graphql_request"`
	UpstreamGraphQLRequest   string `yaml:"on_upstream_graphql_request"`
	UpstreamHTTPRequest      string `yaml:"on_upstream_http_request"`
	UpstreamHTTPResponse     string `yaml:"on_upstream_http_response"`
	DownstreamHTTPResponse   string `yaml:"on_downstream_http_response"`
}

// EndpointConfig is one entry of the top-level "endpoints" list.
type EndpointConfig struct {
	Path     string         `yaml:"path"`
	From     string         `yaml:"from"` // a SourceConfig.ID
	TenantID uint32         `yaml:"tenant_id"`
	Plugins  []PluginConfig `yaml:"plugins"`
}

// CacheStoreConfig is one entry of the top-level "cache_stores" list.
type CacheStoreConfig struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"` // "memory" | "redis" | "cloudflare_kv"

	// "memory"
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`

	// "redis"
	Addr      string `yaml:"addr"`
	KeyPrefix string `yaml:"key_prefix"`

	// "cloudflare_kv"
	AccountID   string `yaml:"account_id"`
	NamespaceID string `yaml:"namespace_id"`
	APIToken    string `yaml:"api_token"`
}

// Config is the full gateway configuration document.
type Config struct {
	Server      ServerConfig       `yaml:"server"`
	Logger      LoggerConfig       `yaml:"logger"`
	Sources     []SourceConfig     `yaml:"sources"`
	Endpoints   []EndpointConfig   `yaml:"endpoints"`
	CacheStores []CacheStoreConfig `yaml:"cache_stores"`
}

// Load reads and parses a Config from path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &cfg, nil
}

// Build constructs the cache stores, source runtimes, and plugin pipelines
// cfg describes, returning a ready-to-serve EndpointGateway alongside the
// federation sources it built, keyed by SourceConfig.ID. The caller uses
// that map to wire a registry.Registry's OnRegister callback to the live
// DynamicFederationSource instances it should push schema updates into -
// Build itself stays free of any registry dependency.
func Build(cfg *Config) (*gateway.EndpointGateway, map[string]*gateway.DynamicFederationSource, error) {
	stores, err := buildCacheStores(cfg.CacheStores)
	if err != nil {
		return nil, nil, err
	}

	sources, dynSources, err := buildSources(cfg.Sources)
	if err != nil {
		return nil, nil, err
	}

	var endpoints []*gateway.EndpointRuntime
	for _, epCfg := range cfg.Endpoints {
		src, ok := sources[epCfg.From]
		if !ok {
			return nil, nil, fmt.Errorf("endpoint %q: unknown source %q", epCfg.Path, epCfg.From)
		}

		plugins, err := buildPlugins(epCfg.Plugins, stores)
		if err != nil {
			return nil, nil, fmt.Errorf("endpoint %q: %w", epCfg.Path, err)
		}

		endpoints = append(endpoints, &gateway.EndpointRuntime{
			Path:     epCfg.Path,
			TenantID: epCfg.TenantID,
			Source:   src,
			Plugins:  plugin.NewManager(plugins...),
		})
	}

	return gateway.NewEndpointGateway(endpoints), dynSources, nil
}

func buildCacheStores(cfgs []CacheStoreConfig) (map[string]cache.Store, error) {
	stores := make(map[string]cache.Store, len(cfgs))
	for _, c := range cfgs {
		switch c.Type {
		case "memory":
			stores[c.ID] = cache.NewMemoryStore(c.Size, c.TTL)
		case "cloudflare_kv":
			stores[c.ID] = cache.NewCloudflareKVStore(c.AccountID, c.NamespaceID, c.APIToken, nil)
		case "redis":
			client := redis.NewClient(&redis.Options{Addr: c.Addr})
			stores[c.ID] = cache.NewRedisStore(client, c.KeyPrefix)
		default:
			return nil, fmt.Errorf("cache store %q: unknown type %q", c.ID, c.Type)
		}
	}
	return stores, nil
}

func buildSources(cfgs []SourceConfig) (map[string]source.Source, map[string]*gateway.DynamicFederationSource, error) {
	sources := make(map[string]source.Source, len(cfgs))
	dynSources := make(map[string]*gateway.DynamicFederationSource)
	httpClient := &http.Client{Timeout: 3 * time.Second}

	for _, s := range cfgs {
		switch s.Type {
		case "graphql":
			sources[s.ID] = source.NewGraphQLSource(s.ID, s.Spec.Endpoint, httpClient)
		case "federation":
			sdls := make(map[string]string, len(s.Spec.SchemaFiles))
			for name, path := range s.Spec.SchemaFiles {
				b, err := os.ReadFile(path)
				if err != nil {
					return nil, nil, fmt.Errorf("source %q: read schema file %q: %w", s.ID, path, err)
				}
				sdls[name] = string(b)
			}
			dyn, err := gateway.NewDynamicFederationSource(s.ID, sdls, s.Spec.Hosts, httpClient)
			if err != nil {
				return nil, nil, fmt.Errorf("source %q: %w", s.ID, err)
			}
			sources[s.ID] = dyn
			dynSources[s.ID] = dyn
		default:
			return nil, nil, fmt.Errorf("source %q: unknown type %q", s.ID, s.Type)
		}
	}
	return sources, dynSources, nil
}

func buildPlugins(cfgs []PluginConfig, stores map[string]cache.Store) ([]plugin.Plugin, error) {
	var plugins []plugin.Plugin
	var last plugin.Plugin

	for _, c := range cfgs {
		switch c.Type {
		case "graphiql":
			plugins = append(plugins, graphiql.New(c.GraphiQLTitle))
		case "http_get":
			plugins = append(plugins, httpget.New(c.HTTPGetForbidMutations))
		case "cors":
			plugins = append(plugins, cors.New(c.CORS))
		case "disable_introspection":
			cond, err := compileExpr(c.DisableIntrospectionCondition)
			if err != nil {
				return nil, fmt.Errorf("disable_introspection: %w", err)
			}
			plugins = append(plugins, disableintrospection.New(cond))
		case "vrl":
			scripts, err := buildVRLScripts(c.VRLScripts)
			if err != nil {
				return nil, fmt.Errorf("vrl: %w", err)
			}
			plugins = append(plugins, vrl.New(scripts))
		case "header_manipulation":
			plugins = append(plugins, headermanipulation.New(c.HeaderActions))
		case "http_cache":
			store, ok := stores[c.CacheStore]
			if !ok {
				return nil, fmt.Errorf("http_cache: unknown cache store %q", c.CacheStore)
			}
			sessionKeyExpr, err := compileExpr(c.SessionKeyExpr)
			if err != nil {
				return nil, fmt.Errorf("http_cache: %w", err)
			}
			plugins = append(plugins, httpcache.New(store, c.CacheTTL, sessionKeyExpr))
		case "trusted_documents":
			store, ok := stores[c.TrustedDocumentsStore]
			if !ok {
				return nil, fmt.Errorf("trusted_documents: unknown cache store %q", c.TrustedDocumentsStore)
			}
			plugins = append(plugins, trusteddocuments.New(store, c.TrustedDocumentsRequire,
				trusteddocuments.ApolloManifestProtocol{},
				trusteddocuments.DocumentIDProtocol{},
			))
		case "match_content_type":
			last = matchcontenttype.New()
		default:
			return nil, fmt.Errorf("unknown plugin type %q", c.Type)
		}
	}

	if last == nil {
		last = matchcontenttype.New()
	}
	return append(plugins, last), nil
}

// compileExpr compiles src as an expr-lang program, returning a nil program
// (meaning "unconditional"/"no-op", per each caller's own convention) for an
// empty string.
func compileExpr(src string) (*vm.Program, error) {
	if src == "" {
		return nil, nil
	}
	return expr.Compile(src)
}

func buildVRLScripts(c VRLScriptsConfig) (vrl.Scripts, error) {
	var (
		s   vrl.Scripts
		err error
	)
	if s.DownstreamHTTPRequest, err = compileExpr(c.DownstreamHTTPRequest); err != nil {
		return s, err
	}
	if s.DownstreamGraphQLRequest, err = compileExpr(c.DownstreamGraphQLRequest); err != nil {
		return s, err
	}
	if s.UpstreamGraphQLRequest, err = compileExpr(c.UpstreamGraphQLRequest); err != nil {
		return s, err
	}
	if s.UpstreamHTTPRequest, err = compileExpr(c.UpstreamHTTPRequest); err != nil {
		return s, err
	}
	if s.UpstreamHTTPResponse, err = compileExpr(c.UpstreamHTTPResponse); err != nil {
		return s, err
	}
	if s.DownstreamHTTPResponse, err = compileExpr(c.DownstreamHTTPResponse); err != nil {
		return s, err
	}
	return s, nil
}
