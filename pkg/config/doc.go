/*
Package config holds the settings of an export and reads them from disk.

	            +-------------+
	            |  Settings   |
	            +------+------+
	                   |
	   +--------+------+-------+--------+
	   |        |              |        |
	+--+---+ +--+---+      +---+--+ +---+--+
	| YAML | | JSON |      | HCL  | | TOML |
	+------+ +------+      +------+ +------+

🎯 Purpose:
- Describes what an export keeps, drops and rewrites
- Provides the built-in defaults for Visual Studio style trees
- Loads settings documents in several formats

🔄 Flow:
1. Discover finds a document (flag, EXPORTSRC_CONFIG, .exportsrc.* at the source root, user config dir)
2. The parser registered for its extension decodes it
3. Validate normalizes filter rules and compiles their patterns
4. The exporter receives a validated *Settings

🤝 Interfaces:
- Parser: Format-specific parsing, registered with Register
*/
package config
