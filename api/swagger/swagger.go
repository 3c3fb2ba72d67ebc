// Package swagger embeds the OpenAPI document of the user provider.
package swagger

import _ "embed"

// DocPath is where the document is served, relative to the swagger route
const DocPath = "/doc.json"

//go:embed user.swagger.json
var Doc []byte
