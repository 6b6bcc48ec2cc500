package assets

import _ "embed"

// ViewerHTML is the browser page served at "/". It draws the JPEG frames
// pushed over the stream websocket, suitable as an OBS browser source.
//
//go:embed viewer.html
var ViewerHTML []byte
