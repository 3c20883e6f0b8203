// Package secret provides a small, dependency-light secret resolution layer
// used to back secret-valued entries in the configuration registry: a
// write whose wire value is a secretref is resolved through a Provider at
// write time, and the registry stores only the resolved, parsed value.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider + Registry)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:vault:project/dotenv/key/OPENAI_API_KEY
//   - Inline use:  Bearer secretref:vault:project/dotenv/key/OPENAI_API_KEY
package secret
