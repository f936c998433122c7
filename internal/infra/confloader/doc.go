// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (WAZUH_SECTION_KEY)
//  3. Configuration file (YAML)
//  4. Default values (LoadMap, loaded first)
//
// A Watcher reports changes to the configuration file so a long-running
// shell can pick them up.
package confloader
