// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - SmartSynchronizer: hash-based incremental sync from the CMS to the vector store
//   - RetrieverService: query expansion, embedding and similarity search
//   - IndexService: index statistics
//   - SettingsService: typed settings over the config store and environment
package services
