// Package catalog loads the list of published Minecraft Bedrock packages and
// resolves a version name or update identifier to its catalog entry.
package catalog
