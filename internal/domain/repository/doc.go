// Package repository define los contratos de almacenamiento del dominio.
//
// Las implementaciones viven en internal/store/adapters (memory, pg).
//
//	┌──────────────────────────────────────────────────────┐
//	│            Services / Controllers                    │
//	└──────────────────────────────────────────────────────┘
//	                         │
//	                         ▼
//	┌──────────────────────────────────────────────────────┐
//	│          domain/repository (interfaces)              │
//	│  PluginRepository, APITokenRepository, UserRepository │
//	└──────────────────────────────────────────────────────┘
//	                         │
//	                ┌────────┴────────┐
//	                ▼                 ▼
//	         ┌────────────┐    ┌────────────┐
//	         │  adapters/ │    │  adapters/ │
//	         │   memory   │    │     pg     │
//	         └────────────┘    └────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Los documentos se identifican por (id, group). El group es la
//     partición: UnownedGroup para plugins sin dueño, el username del dueño
//     en caso contrario.
//   - Las escrituras sobre un PluginInstance son condicionales a Version.
package repository
