// Package domain define contratos e tipos de domínio para a cota de perguntas,
// o throttle por cliente e o limite de concorrência.
//
// Este pacote não depende de net/http, Redis nem de implementações concretas.
// As regras da janela de cota (Policy.Apply) são funções puras, o que permite
// testá-las sem store nenhum e reaproveitá-las em qualquer backend atômico.
package domain
