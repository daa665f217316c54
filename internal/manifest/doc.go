// Package manifest models the application build manifest and converts it to
// and from the namespaced config.xml dialect consumed by the Cordova CLI.
//
// A Manifest is assembled from package metadata defaults merged with a
// source (inline tree, JSON file or an existing config.xml), validated, then
// serialized. Deserialize(Serialize(m)) reproduces every modelled field.
package manifest
