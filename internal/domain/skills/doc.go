/*
Package skills stores agent skills on disk.

Each skill lives in its own directory under the store root:

	<root>/<name>/SKILL.md
	<root>/<name>/scripts/
	<root>/<name>/references/
	<root>/<name>/assets/

SKILL.md holds a YAML front matter block followed by the instructional body.
Documents are always replaced whole (write to a temporary file, then rename),
and new skills are assembled in a hidden staging directory before being
renamed into place, so readers never observe a partially written skill.
Writers to the same skill name are serialized; different names proceed
independently.
*/
package skills
