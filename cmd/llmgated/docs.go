package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           llmgated API
// @version         0.3.0
// @description     HTTP gateway translating Ollama and OpenAI dialects onto a supervised inference backend.
//
// @contact.name   llmgated maintainers
// @contact.url    https://github.com/your-org/llmgated
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
