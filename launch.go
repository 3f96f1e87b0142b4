package authgate

import (
	"net/url"
	"path"
	"strings"
)

const (
	DefaultBundledRoot   = "android_asset"
	DefaultIndexFile     = "index.html"
	DefaultAPIEndpoint   = "http://10.0.2.2:8080/api"
	DefaultTilesEndpoint = "http://10.0.2.2:8082"
)

// Endpoints are the backend addresses handed to the embedded client.
type Endpoints struct {
	API   string
	Tiles string
}

// Bundle locates the embedded client on the local file system.
type Bundle struct {
	Root  string
	Index string
}

// SurfaceSettings are the capabilities the embedded surface must enable
// before loading a target.
type SurfaceSettings struct {
	JavaScript          bool
	DOMStorage          bool
	FileAccess          bool
	ContentAccess       bool
	UniversalFileAccess bool
	MixedContent        bool
}

// DefaultSurfaceSettings enables everything the bundled client needs.
func DefaultSurfaceSettings() SurfaceSettings {
	return SurfaceSettings{
		JavaScript:          true,
		DOMStorage:          true,
		FileAccess:          true,
		ContentAccess:       true,
		UniversalFileAccess: true,
		MixedContent:        true,
	}
}

// LaunchTarget is what the content surface loads.
type LaunchTarget struct {
	URL      string
	Settings SurfaceSettings
}

// EndpointsFromConfig reads the endpoints from cfg.
func EndpointsFromConfig(cfg Config) Endpoints {
	if cfg == nil {
		return Endpoints{API: DefaultAPIEndpoint, Tiles: DefaultTilesEndpoint}
	}
	return Endpoints{API: cfg.GetAPIEndpoint(), Tiles: cfg.GetTilesEndpoint()}
}

// BundleFromConfig reads the bundle location from cfg, using the defaults for
// empty values.
func BundleFromConfig(cfg Config) Bundle {
	b := Bundle{}
	if cfg != nil {
		b.Root = cfg.GetBundledRoot()
		b.Index = cfg.GetIndexFile()
	}
	if strings.TrimSpace(b.Root) == "" {
		b.Root = DefaultBundledRoot
	}
	if strings.TrimSpace(b.Index) == "" {
		b.Index = DefaultIndexFile
	}
	return b
}

// BuildLaunchTarget builds the embedded client address:
//
//	file:///<root>/<index>?api=<api>&tiles=<tiles>
//
// Query values are percent encoded. The result only depends on the arguments.
func BuildLaunchTarget(session *Session, bundle Bundle, endpoints Endpoints) (LaunchTarget, error) {
	if session == nil || strings.TrimSpace(session.UserID) == "" {
		return LaunchTarget{}, ErrNoSession
	}

	api, err := checkEndpoint("api", endpoints.API)
	if err != nil {
		return LaunchTarget{}, err
	}

	tiles, err := checkEndpoint("tiles", endpoints.Tiles)
	if err != nil {
		return LaunchTarget{}, err
	}

	root := strings.Trim(strings.TrimSpace(bundle.Root), "/")
	if root == "" {
		root = DefaultBundledRoot
	}
	index := strings.Trim(strings.TrimSpace(bundle.Index), "/")
	if index == "" {
		index = DefaultIndexFile
	}

	query := url.Values{}
	query.Set("api", api)
	query.Set("tiles", tiles)

	target := url.URL{
		Scheme:   "file",
		Path:     "/" + path.Join(root, index),
		RawQuery: query.Encode(),
	}

	return LaunchTarget{
		URL:      target.String(),
		Settings: DefaultSurfaceSettings(),
	}, nil
}

func checkEndpoint(name, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", withMetadata(ErrInvalidEndpoint, map[string]any{
			"endpoint": name,
			"value":    raw,
		})
	}
	return value, nil
}
