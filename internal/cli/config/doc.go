// Package config defines the wazuh-cli configuration.
//
//   - spec.go: CLIConfig, defaults and validation
//   - keys.go: the dotted key set used by config get/set and flags
//   - loader.go: layered loading (defaults, file, WAZUH_* env, flags) and
//     saving to ~/.wazuh-cli/config.yaml with mode 0600
package config
