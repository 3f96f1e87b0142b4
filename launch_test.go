package authgate_test

import (
	"net/url"
	"testing"

	"github.com/goliatone/go-authgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var signedIn = &authgate.Session{UserID: "u-1", Email: "user@example.com"}

func TestBuildLaunchTargetDefaults(t *testing.T) {
	cfg := defaultTestConfig()

	target, err := authgate.BuildLaunchTarget(signedIn, authgate.BundleFromConfig(cfg), authgate.EndpointsFromConfig(cfg))
	require.NoError(t, err)

	assert.Equal(t,
		"file:///android_asset/index.html?api=http%3A%2F%2F10.0.2.2%3A8080%2Fapi&tiles=http%3A%2F%2F10.0.2.2%3A8082",
		target.URL,
	)
	assert.Equal(t, authgate.DefaultSurfaceSettings(), target.Settings)
	assert.True(t, target.Settings.JavaScript)
	assert.True(t, target.Settings.MixedContent)
}

func TestBuildLaunchTargetIsDeterministic(t *testing.T) {
	bundle := authgate.Bundle{Root: "www", Index: "app.html"}
	endpoints := authgate.Endpoints{API: "https://api.example.com/v1", Tiles: "https://tiles.example.com"}

	first, err := authgate.BuildLaunchTarget(signedIn, bundle, endpoints)
	require.NoError(t, err)
	second, err := authgate.BuildLaunchTarget(&authgate.Session{UserID: "someone-else"}, bundle, endpoints)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildLaunchTargetEncodesQuery(t *testing.T) {
	endpoints := authgate.Endpoints{
		API:   "https://api.example.com/v1?key=a&b=c",
		Tiles: "https://tiles.example.com/{z}/{x}/{y}",
	}

	target, err := authgate.BuildLaunchTarget(signedIn, authgate.Bundle{}, endpoints)
	require.NoError(t, err)

	u, err := url.Parse(target.URL)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, "/android_asset/index.html", u.Path)
	assert.Equal(t, endpoints.API, u.Query().Get("api"))
	assert.Equal(t, endpoints.Tiles, u.Query().Get("tiles"))
	assert.NotContains(t, u.RawQuery, "&b=c")
}

func TestBuildLaunchTargetTrimsBundleSlashes(t *testing.T) {
	target, err := authgate.BuildLaunchTarget(signedIn,
		authgate.Bundle{Root: "/assets/web/", Index: "/index.html"},
		authgate.Endpoints{API: "http://localhost:8080/api", Tiles: "http://localhost:8082"},
	)
	require.NoError(t, err)

	u, err := url.Parse(target.URL)
	require.NoError(t, err)
	assert.Equal(t, "/assets/web/index.html", u.Path)
}

func TestBuildLaunchTargetErrors(t *testing.T) {
	good := authgate.Endpoints{API: authgate.DefaultAPIEndpoint, Tiles: authgate.DefaultTilesEndpoint}

	_, err := authgate.BuildLaunchTarget(nil, authgate.Bundle{}, good)
	assert.ErrorIs(t, err, authgate.ErrNoSession)

	_, err = authgate.BuildLaunchTarget(&authgate.Session{}, authgate.Bundle{}, good)
	assert.ErrorIs(t, err, authgate.ErrNoSession)

	for name, endpoints := range map[string]authgate.Endpoints{
		"empty api":     {Tiles: good.Tiles},
		"relative api":  {API: "/api", Tiles: good.Tiles},
		"ftp tiles":     {API: good.API, Tiles: "ftp://10.0.2.2"},
		"no host tiles": {API: good.API, Tiles: "http://"},
		"garbage tiles": {API: good.API, Tiles: "::not a url"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := authgate.BuildLaunchTarget(signedIn, authgate.Bundle{}, endpoints)
			assert.True(t, authgate.HasTextCode(err, authgate.TextCodeInvalidEndpoint), "got %v", err)
		})
	}
}

func TestBundleFromConfigFallsBack(t *testing.T) {
	assert.Equal(t, authgate.Bundle{Root: "android_asset", Index: "index.html"}, authgate.BundleFromConfig(nil))
	assert.Equal(t, authgate.Bundle{Root: "www", Index: "index.html"}, authgate.BundleFromConfig(staticConfig{root: "www"}))
	assert.Equal(t,
		authgate.Endpoints{API: authgate.DefaultAPIEndpoint, Tiles: authgate.DefaultTilesEndpoint},
		authgate.EndpointsFromConfig(nil),
	)
}
